// Package service defines the backend-agnostic types and contracts for task operations.
package service

import "context"

// TaskRepository defines the remote task operations.
// All calls require a credential; implementations never interpret
// failures beyond classifying them as *Error.
type TaskRepository interface {
	// ListTasks returns the full current collection for the authenticated user.
	// A response of unexpected shape yields an empty slice.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a pending, medium-priority task and returns the
	// record assigned by the server.
	CreateTask(ctx context.Context, text string) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error

	// SetStatus sets a task's status and returns the updated record.
	SetStatus(ctx context.Context, id string, status Status) (Task, error)

	// SetPriority sets a task's priority and returns the updated record.
	SetPriority(ctx context.Context, id string, priority Priority) (Task, error)
}

// Authenticator defines the unauthenticated account operations.
type Authenticator interface {
	// Register creates an account and returns the service's message.
	Register(ctx context.Context, username, password string) (string, error)

	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (string, error)
}

// Service is the full remote contract consumed by the client.
type Service interface {
	TaskRepository
	Authenticator
}
