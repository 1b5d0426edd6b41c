// Package service defines the backend-agnostic types and contracts for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the completion state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Toggle returns the opposite status.
// Anything that is not pending toggles to pending, so only the two known
// values are ever produced.
func (s Status) Toggle() Status {
	if s == StatusPending {
		return StatusCompleted
	}
	return StatusPending
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Priority is the importance of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts user input to a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s (want low, medium or high)", s)
	}
	return p, nil
}

// Task represents a single task item as owned by the remote service.
type Task struct {
	ID       string   `json:"_id"`
	Text     string   `json:"text"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
}

// UnmarshalJSON accepts the identity under either "_id" or "id", as a
// string or a number.
func (t *Task) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       json.RawMessage `json:"_id"`
		AltID    json.RawMessage `json:"id"`
		Text     string          `json:"text"`
		Status   Status          `json:"status"`
		Priority Priority        `json:"priority"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	raw := wire.ID
	if len(raw) == 0 || string(raw) == "null" {
		raw = wire.AltID
	}
	id, err := decodeID(raw)
	if err != nil {
		return err
	}

	*t = Task{
		ID:       id,
		Text:     wire.Text,
		Status:   wire.Status,
		Priority: wire.Priority,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("invalid task id: %s", raw)
}

// CreateTaskRequest is the body sent to create a task.
type CreateTaskRequest struct {
	Text     string   `json:"text"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
}

// NewCreateTaskRequest builds a create request. New tasks always start
// pending with medium priority.
func NewCreateTaskRequest(text string) CreateTaskRequest {
	return CreateTaskRequest{
		Text:     text,
		Status:   StatusPending,
		Priority: PriorityMedium,
	}
}

// StatusRequest is the body of a status patch.
type StatusRequest struct {
	Status Status `json:"status"`
}

// PriorityRequest is the body of a priority patch.
type PriorityRequest struct {
	Priority Priority `json:"priority"`
}

// Credentials is the body of register and login calls.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
