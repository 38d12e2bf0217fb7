// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func newGraph(nodes ...string) *Graph {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	order, err := New().TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_SyntheticChain(t *testing.T) {
	t.Parallel()
	// check-dep1 -> check-dep2 -> check, declared in the order the resolver inserts them.
	g := newGraph("check-dep1", "check-dep2", "check")
	g.AddEdge("check-dep1", "check-dep2")
	g.AddEdge("check-dep2", "check")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"check-dep1", "check-dep2", "check"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_HooksKeepDeclarationOrder(t *testing.T) {
	t.Parallel()
	g := newGraph("build", "lint", "pretest", "test", "posttest")
	g.AddEdge("pretest", "test")
	g.AddEdge("test", "posttest")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"build", "lint", "pretest", "test", "posttest"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := newGraph("A", "B", "C", "D")
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "D")
	g.AddEdge("C", "D")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order[0] != "A" || order[len(order)-1] != "D" || len(order) != 4 {
		t.Errorf("unexpected order %v", order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		min   int
	}{
		{"self loop", []string{"A"}, [][2]string{{"A", "A"}}, 1},
		{"pair", []string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}}, 2},
		{"triangle", []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGraph(tt.nodes...)
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T: %v", err, err)
			}
			if !errors.Is(err, ErrCycle) {
				t.Error("error should wrap ErrCycle")
			}
			if len(cycleErr.Cycle) < tt.min {
				t.Errorf("expected at least %d nodes in cycle, got %v", tt.min, cycleErr.Cycle)
			}
		})
	}
}

func TestTopologicalSort_UnknownNode(t *testing.T) {
	t.Parallel()
	g := newGraph("test")
	g.AddEdge("pretest", "test")

	_, err := g.TopologicalSort()
	var unknownErr *UnknownNodeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected *UnknownNodeError, got %T: %v", err, err)
	}
	if unknownErr.From != "pretest" || unknownErr.To != "test" {
		t.Errorf("unexpected edge %s -> %s", unknownErr.From, unknownErr.To)
	}
	if !errors.Is(err, ErrUnknownNode) {
		t.Error("error should wrap ErrUnknownNode")
	}
}

func TestTopologicalSort_DuplicateEdges(t *testing.T) {
	t.Parallel()
	g := newGraph("A", "B")
	g.AddEdge("A", "B")
	g.AddEdge("A", "B")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(order, []string{"A", "B"}) {
		t.Errorf("expected [A, B], got %v", order)
	}
}

func TestAddNode_Idempotent(t *testing.T) {
	t.Parallel()
	g := newGraph("A", "A", "B")
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "C"}}
	expected := "dependency cycle detected: A -> B -> C"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
