// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tasksync/internal/service"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = &service.Error{Op: "fake", Kind: service.KindRejected, Code: 404, Message: "Task not found"}

// ErrTransport simulates a request that never completed.
var ErrTransport = &service.Error{Op: "fake", Kind: service.KindTransport, Err: errors.New("connection refused")}

// FakeService is an in-memory implementation of service.Service for testing.
// Records are returned by value, so callers never share state with the fake.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	users  map[string]string // username -> password
	nextID int

	// Requests observed, in order.
	StatusRequests   []service.Status
	PriorityRequests []service.Priority
	CreateRequests   []service.CreateTaskRequest
	ListCalls        int

	// Error injection for testing
	ListErr        error
	CreateErr      error
	DeleteErr      error
	SetStatusErr   error
	SetPriorityErr error
	RegisterErr    error
	LoginErr       error

	// Token returned by a successful Login.
	Token string
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		users: make(map[string]string),
		Token: "fake-token",
	}
}

// AddTask seeds a task directly, bypassing the create request.
func (f *FakeService) AddTask(task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}

// AddUser seeds an account.
func (f *FakeService) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// Tasks returns a copy of the server-side collection.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

// ListTasks implements service.TaskRepository.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]service.Task{}, f.tasks...), nil
}

// CreateTask implements service.TaskRepository.
func (f *FakeService) CreateTask(ctx context.Context, text string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := service.NewCreateTaskRequest(text)
	f.CreateRequests = append(f.CreateRequests, req)
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}

	f.nextID++
	task := service.Task{
		ID:       fmt.Sprintf("t%d", f.nextID),
		Text:     req.Text,
		Status:   req.Status,
		Priority: req.Priority,
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

// DeleteTask implements service.TaskRepository.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// SetStatus implements service.TaskRepository.
func (f *FakeService) SetStatus(ctx context.Context, id string, status service.Status) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusRequests = append(f.StatusRequests, status)
	if f.SetStatusErr != nil {
		return service.Task{}, f.SetStatusErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return f.tasks[i], nil
		}
	}
	return service.Task{}, ErrNotFound
}

// SetPriority implements service.TaskRepository.
func (f *FakeService) SetPriority(ctx context.Context, id string, priority service.Priority) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PriorityRequests = append(f.PriorityRequests, priority)
	if f.SetPriorityErr != nil {
		return service.Task{}, f.SetPriorityErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Priority = priority
			return f.tasks[i], nil
		}
	}
	return service.Task{}, ErrNotFound
}

// Register implements service.Authenticator.
func (f *FakeService) Register(ctx context.Context, username, password string) (string, error) {
	if f.RegisterErr != nil {
		return "", f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[username]; exists {
		return "", &service.Error{Op: "register", Kind: service.KindRejected, Code: 400, Message: "User already exists"}
	}
	f.users[username] = password
	return "User registered", nil
}

// Login implements service.Authenticator.
func (f *FakeService) Login(ctx context.Context, username, password string) (string, error) {
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.users[username]; !ok || pw != password {
		return "", &service.Error{Op: "login", Kind: service.KindRejected, Code: 401, Message: "Invalid credentials"}
	}
	return f.Token, nil
}
