// SPDX-License-Identifier: MPL-2.0

package task

import (
	"fmt"
	"iter"

	"github.com/invowk/monorun/internal/dag"
)

// Collection is an insertion-ordered set of tasks keyed by local task name.
// It is built incrementally: dependencies are inserted before the tasks that
// reference them.
type Collection struct {
	order []string
	tasks map[string]*Task
}

// NewCollection creates an empty Collection.
func NewCollection() *Collection {
	return &Collection{tasks: make(map[string]*Task)}
}

// Add inserts or replaces the task stored under name. A replaced task keeps
// its original position.
func (c *Collection) Add(name string, t *Task) {
	if _, exists := c.tasks[name]; !exists {
		c.order = append(c.order, name)
	}
	c.tasks[name] = t
}

// Get returns the task stored under name.
func (c *Collection) Get(name string) (*Task, bool) {
	t, ok := c.tasks[name]
	return t, ok
}

// Has reports whether a task is stored under name.
func (c *Collection) Has(name string) bool {
	_, ok := c.tasks[name]
	return ok
}

// Len returns the number of tasks.
func (c *Collection) Len() int {
	return len(c.order)
}

// Names returns task names in insertion order.
func (c *Collection) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All iterates over tasks in insertion order.
func (c *Collection) All() iter.Seq2[string, *Task] {
	return func(yield func(string, *Task) bool) {
		for _, name := range c.order {
			if !yield(name, c.tasks[name]) {
				return
			}
		}
	}
}

// ExecutionOrder returns task names ordered so that every task follows its
// same-project dependencies. Dependencies on other projects are not part of
// the collection and are ignored. It fails when a same-project dependency
// names a missing task or when dependencies form a cycle.
func (c *Collection) ExecutionOrder() ([]string, error) {
	g := dag.New()
	for _, name := range c.order {
		g.AddNode(name)
	}
	for _, name := range c.order {
		for _, dep := range c.tasks[name].Deps {
			if !dep.IsSelf() {
				continue
			}
			_, depName, err := dep.Split()
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", c.tasks[name].ID, err)
			}
			g.AddEdge(depName, name)
		}
	}
	return g.TopologicalSort()
}
