package snapshot_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sandvm/pkg/future"
	"sandvm/pkg/snapshot"
	"sandvm/pkg/value"
)

func sample() snapshot.Snapshot {
	return snapshot.Snapshot{
		Name:   "sandvm",
		Source: "let x = await later(10, 1);\nx + 1",
		Token: future.Token{Statement: 0, Site: 0, Frames: []future.Point{
			{Depth: 0, Fragment: 0, Caller: "sandvm", LinkCounter: 0},
		}},
		Journal: []snapshot.Entry{
			{Statement: 0, Site: 0, Value: snapshot.Primitive{Kind: value.KindString, Str: "done"}},
		},
		Created: time.Unix(1700000000, 0).UTC(),
	}
}

func TestRoundTrip(t *testing.T) {
	want := sample()

	data, err := snapshot.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := snapshot.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot round trip (-want +got):\n%s", diff)
	}
}

func TestCanonical(t *testing.T) {
	a, err := snapshot.Marshal(sample())
	if err != nil {
		t.Fatal(err)
	}
	b, err := snapshot.Marshal(sample())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := snapshot.Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage decoded without error")
	}
}

func TestPrimitives(t *testing.T) {
	values := []value.Value{value.Nil, value.Int(-7), value.Float(0.25), value.Bool(true), value.String("s")}
	for _, v := range values {
		p, err := snapshot.FromValue(v)
		if err != nil {
			t.Errorf("FromValue(%s): %v", v, err)
			continue
		}
		if back := p.Value(); back.Kind != v.Kind || !value.Equal(back, v) {
			t.Errorf("%s came back as %s", v, back)
		}
	}

	unencodable := []value.Value{
		value.Function(&value.Closure{}),
		value.NewBuiltin("print", nil),
		value.Future(future.New[value.Value]()),
	}
	for _, v := range unencodable {
		if _, err := snapshot.FromValue(v); !errors.Is(err, snapshot.ErrUnencodable) {
			t.Errorf("FromValue(%s) error = %v", v.Kind, err)
		}
	}
}
