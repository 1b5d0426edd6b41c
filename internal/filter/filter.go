// Package filter derives the visible subset of a task collection.
package filter

import (
	"fmt"

	"tasksync/internal/service"
)

// All matches every value of a field.
const All = "all"

// StatusFilter selects tasks by status. The zero value matches all.
type StatusFilter string

const (
	StatusAll       StatusFilter = All
	StatusPending   StatusFilter = StatusFilter(service.StatusPending)
	StatusCompleted StatusFilter = StatusFilter(service.StatusCompleted)
)

// PriorityFilter selects tasks by priority. The zero value matches all.
type PriorityFilter string

const (
	PriorityAll    PriorityFilter = All
	PriorityLow    PriorityFilter = PriorityFilter(service.PriorityLow)
	PriorityMedium PriorityFilter = PriorityFilter(service.PriorityMedium)
	PriorityHigh   PriorityFilter = PriorityFilter(service.PriorityHigh)
)

// Predicates is the pair of independent selection criteria.
type Predicates struct {
	Status   StatusFilter
	Priority PriorityFilter
}

// Default matches every task.
func Default() Predicates {
	return Predicates{Status: StatusAll, Priority: PriorityAll}
}

// ParseStatus validates a status filter. Empty input means all.
func ParseStatus(s string) (StatusFilter, error) {
	switch f := StatusFilter(s); f {
	case "", StatusAll:
		return StatusAll, nil
	case StatusPending, StatusCompleted:
		return f, nil
	}
	return "", fmt.Errorf("invalid status filter: %s (want all, pending or completed)", s)
}

// ParsePriority validates a priority filter. Empty input means all.
func ParsePriority(s string) (PriorityFilter, error) {
	switch f := PriorityFilter(s); f {
	case "", PriorityAll:
		return PriorityAll, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return f, nil
	}
	return "", fmt.Errorf("invalid priority filter: %s (want all, low, medium or high)", s)
}

// IsDefault reports whether p matches every task.
func (p Predicates) IsDefault() bool {
	return isAll(string(p.Status)) && isAll(string(p.Priority))
}

// Match reports whether t satisfies both predicates.
func (p Predicates) Match(t service.Task) bool {
	if !isAll(string(p.Status)) && string(t.Status) != string(p.Status) {
		return false
	}
	if !isAll(string(p.Priority)) && string(t.Priority) != string(p.Priority) {
		return false
	}
	return true
}

// Row is a visible task and its 1-based position in the full collection.
type Row struct {
	Pos  int
	Task service.Task
}

// Visible returns the tasks matching p, in their original order.
// The result is a fresh slice and never aliases tasks.
func Visible(tasks []service.Task, p Predicates) []service.Task {
	rows := VisibleRows(tasks, p)
	out := make([]service.Task, len(rows))
	for i, r := range rows {
		out[i] = r.Task
	}
	return out
}

// VisibleRows is Visible keeping each task's position in tasks, so a
// filtered view can still be numbered the way the full one is.
func VisibleRows(tasks []service.Task, p Predicates) []Row {
	out := make([]Row, 0, len(tasks))
	for i, t := range tasks {
		if p.Match(t) {
			out = append(out, Row{Pos: i + 1, Task: t})
		}
	}
	return out
}

func isAll(s string) bool {
	return s == "" || s == All
}
