// Package selector picks what a virtual user does next: a weighted choice
// among its tasks, sub-action coin flips and the pause between tasks.
package selector

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by the selector package.
var (
	// ErrNoTasks is returned when a table would be empty.
	ErrNoTasks = errors.New("selector: no tasks")
	// ErrInvalidWeight is returned when a task has a non-positive weight.
	ErrInvalidWeight = errors.New("selector: invalid weight")
	// ErrInvalidTask is returned for unnamed, duplicate or action-less tasks.
	ErrInvalidTask = errors.New("selector: invalid task")
)

// Task is one weighted behavior.
type Task struct {
	Name   string
	Weight int
	Run    func(ctx context.Context) error
}

// weightedEntry represents an entry in the weighted selection pool.
type weightedEntry struct {
	task             Task
	cumulativeWeight int
}

// Table selects tasks with probability weight / total weight. Selections are
// independent of each other. A Table is immutable after construction and
// safe to share, provided each goroutine brings its own Rand.
type Table struct {
	entries     []weightedEntry
	totalWeight int
}

// NewTable builds a table from tasks in the given order.
func NewTable(tasks ...Task) (*Table, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	t := &Table{entries: make([]weightedEntry, 0, len(tasks))}
	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if task.Name == "" || task.Run == nil {
			return nil, fmt.Errorf("%w: %q needs a name and an action", ErrInvalidTask, task.Name)
		}
		if seen[task.Name] {
			return nil, fmt.Errorf("%w: duplicate task %q", ErrInvalidTask, task.Name)
		}
		seen[task.Name] = true
		if task.Weight <= 0 {
			return nil, fmt.Errorf("%w: %s has weight %d", ErrInvalidWeight, task.Name, task.Weight)
		}

		t.totalWeight += task.Weight
		t.entries = append(t.entries, weightedEntry{task: task, cumulativeWeight: t.totalWeight})
	}
	return t, nil
}

// Select draws one task.
func (t *Table) Select(r Rand) Task {
	target := r.IntN(t.totalWeight)

	// Binary search for the first entry whose cumulative weight exceeds target.
	left, right := 0, len(t.entries)-1
	for left < right {
		mid := (left + right) / 2
		if t.entries[mid].cumulativeWeight <= target {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return t.entries[left].task
}

// TotalWeight returns the sum of all weights.
func (t *Table) TotalWeight() int {
	return t.totalWeight
}

// Names returns the task names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.task.Name
	}
	return names
}

// Probability returns the selection probability of the named task, or 0.
func (t *Table) Probability(name string) float64 {
	prev := 0
	for _, e := range t.entries {
		if e.task.Name == name {
			return float64(e.cumulativeWeight-prev) / float64(t.totalWeight)
		}
		prev = e.cumulativeWeight
	}
	return 0
}
