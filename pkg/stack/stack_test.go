package stack_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"sandvm/pkg/stack"
)

func TestPushPopOrder(t *testing.T) {
	s := stack.NewStack(1, 2)
	s.Push(3)

	var got []int
	for s.Size() > 0 {
		v, ok := s.Pop()
		if !ok {
			t.Fatal("Pop reported empty on non-empty stack")
		}
		got = append(got, v)
	}

	if diff := cmp.Diff([]int{3, 2, 1}, got); diff != "" {
		t.Errorf("pop order (-want +got):\n%s", diff)
	}
}

func TestEmptyStack(t *testing.T) {
	s := stack.NewStack[string]()

	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty stack reported ok")
	}
	if _, ok := s.Peek(); ok {
		t.Error("Peek on empty stack reported ok")
	}
}

func TestTruncate(t *testing.T) {
	s := stack.NewStack("a", "b", "c", "d")

	s.Truncate(5)
	if s.Size() != 4 {
		t.Fatalf("Truncate above size changed stack: %d", s.Size())
	}

	s.Truncate(1)
	if diff := cmp.Diff([]string{"a"}, s.Array()); diff != "" {
		t.Errorf("after Truncate(1) (-want +got):\n%s", diff)
	}

	s.Push("e")
	if top, _ := s.Peek(); top != "e" {
		t.Errorf("Peek after push = %q", top)
	}

	s.Truncate(0)
	if s.Size() != 0 || len(s.Array()) != 0 {
		t.Errorf("Truncate(0) left %v", s.Array())
	}
}
