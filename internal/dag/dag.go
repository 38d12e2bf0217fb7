// SPDX-License-Identifier: MPL-2.0

// Package dag orders nodes of a directed graph and detects cycles and dangling
// edges. It is used to compute the execution order of an inferred task
// collection, where every dependency edge must point at a task declared in
// the same collection.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle is the sentinel wrapped by CycleError.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnknownNode is the sentinel wrapped by UnknownNodeError.
	ErrUnknownNode = errors.New("unknown node")
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes left unordered, in declaration order.
		Cycle []string
	}

	// UnknownNodeError indicates an edge that references a node never added with AddNode.
	UnknownNodeError struct {
		From string
		To   string
	}

	// Graph is a directed graph for topological sorting.
	// An edge from A to B means A must complete before B starts.
	// Unlike a free-form graph, nodes must be declared explicitly: an edge to
	// an undeclared node is reported by Validate instead of creating the node.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]struct{}
		edges     [][2]string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references an undeclared node", e.From, e.To)
}

// Unwrap returns ErrUnknownNode for errors.Is() compatibility.
func (e *UnknownNodeError) Unwrap() error { return ErrUnknownNode }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]struct{}),
	}
}

// AddNode declares a node. Declaring an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.HasNode(name) {
		return
	}
	g.nodeSet[name] = struct{}{}
	g.nodes = append(g.nodes, name)
}

// HasNode reports whether the node has been declared.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodeSet[name]
	return ok
}

// AddEdge records that "from" must run before "to".
func (g *Graph) AddEdge(from, to string) {
	g.edges = append(g.edges, [2]string{from, to})
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Validate returns an UnknownNodeError for the first edge, in insertion order,
// whose endpoints are not both declared.
func (g *Graph) Validate() error {
	for _, edge := range g.edges {
		if !g.HasNode(edge[0]) || !g.HasNode(edge[1]) {
			return &UnknownNodeError{From: edge[0], To: edge[1]}
		}
	}
	return nil
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Nodes at the same level appear in declaration order. It returns an
// UnknownNodeError for dangling edges and a CycleError for cycles.
func (g *Graph) TopologicalSort() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
