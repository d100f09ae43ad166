package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sandvm/internal/store"
	"sandvm/pkg/future"
	"sandvm/pkg/snapshot"
	"sandvm/pkg/value"
)

func openTemp(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "sandvm.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snap(name string, n int64) snapshot.Snapshot {
	return snapshot.Snapshot{
		Name:   name,
		Source: "let x = await later(1, 1);",
		Token:  future.Token{Statement: 0, Site: 0, Frames: []future.Point{{Caller: name}}},
		Journal: []snapshot.Entry{
			{Statement: 0, Site: 0, Value: snapshot.Primitive{Kind: value.KindInt, Int: n}},
		},
		Created: time.Unix(1700000000, 0).UTC(),
	}
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)

	a, err := s.Put(snap("a", 1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Put(snap("b", 2))
	if err != nil {
		t.Fatal(err)
	}
	if a != 1 || b != 2 {
		t.Errorf("sequence numbers = %d, %d", a, b)
	}

	got, err := s.Get(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(snap("b", 2), got); diff != "" {
		t.Errorf("Get (-want +got):\n%s", diff)
	}

	if _, err := s.Get(99); !errors.Is(err, store.ErrNoSnapshot) {
		t.Errorf("Get(99) error = %v", err)
	}
}

func TestListDelete(t *testing.T) {
	s := openTemp(t)
	for i, name := range []string{"a", "b", "c"} {
		if _, err := s.Put(snap(name, int64(i))); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Delete(2); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(42); err != nil {
		t.Errorf("Delete of a missing snapshot = %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []store.Entry{{Seq: 1, Snapshot: snap("a", 0)}, {Seq: 3, Snapshot: snap("c", 2)}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandvm.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := s.Put(snap("kept", 7))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(seq)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "kept" {
		t.Errorf("name = %q", got.Name)
	}
	if next, _ := s.Put(snap("next", 8)); next != seq+1 {
		t.Errorf("sequence after reopen = %d", next)
	}
}
