// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/filter"
	"tasksync/internal/service"
)

const (
	// ListSeparator is the separator line around a filter header.
	ListSeparator = "------------"
)

// FormatTask formats a task line for the default list.
// Format: "{N:>4}  [{MARK}] {TEXT} ({PRIORITY})\n" where MARK is "x" for
// completed tasks and a space otherwise.
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  [%s] %s (%s)\n", num, mark(task.Status), normalizeText(task.Text), normalizePriority(task.Priority))
}

// FormatTaskLong is FormatTask followed by the task ID.
func FormatTaskLong(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  [%s] %s (%s)  %s\n", num, mark(task.Status), normalizeText(task.Text), normalizePriority(task.Priority), task.ID)
}

// FormatFilterHeader formats the header shown above a filtered list.
func FormatFilterHeader(w io.Writer, p filter.Predicates) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "status: %s, priority: %s\n", orAll(string(p.Status)), orAll(string(p.Priority)))
	fmt.Fprintln(w, ListSeparator)
}

// FormatTaskResult formats the record the service returned after a change.
func FormatTaskResult(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%s: %s, %s\n", normalizeText(task.Text), task.Status, normalizePriority(task.Priority))
}

func mark(s service.Status) string {
	if s == service.StatusCompleted {
		return "x"
	}
	return " "
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}

func normalizePriority(p service.Priority) string {
	if p == "" {
		return "none"
	}
	return string(p)
}

func orAll(s string) string {
	if s == "" {
		return filter.All
	}
	return s
}
