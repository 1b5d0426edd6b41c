// Package store owns the client-side task collection and keeps it in step
// with the remote service.
//
// Every mutation is a remote call followed by reconciliation with the
// record the service returned. Nothing changes locally before the service
// confirms, so a failed call leaves the collection untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tasksync/internal/service"
)

// State is the store's position in the credential lifecycle.
type State int

const (
	// Unauthenticated means no credential is held and the collection is empty.
	Unauthenticated State = iota
	// Loading means a credential is held and the initial list has not resolved.
	Loading
	// Synced means the collection reflects a resolved list plus any mutations since.
	Synced
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Synced:
		return "synced"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// placement controls where reconcile puts a record.
type placement int

const (
	replaceInPlace placement = iota
	moveToEnd
)

// Store is the authoritative in-memory task collection.
// It is safe for concurrent use; the lock is never held across a remote call.
type Store struct {
	repo    service.TaskRepository
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	state State
	epoch uint64 // bumped by Reset; results from an older epoch are dropped
	tasks []service.Task
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the store's collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an Unauthenticated store on top of repo.
func New(repo service.TaskRepository, opts ...Option) *Store {
	s := &Store{repo: repo, tasks: []service.Task{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// CredentialChanged implements session.Listener. An empty token resets the
// store; a new token resets it and loads the new user's tasks.
func (s *Store) CredentialChanged(ctx context.Context, token string) error {
	s.Reset()
	if token == "" {
		return nil
	}
	return s.Load(ctx)
}

// Reset discards all tasks and returns to Unauthenticated. Calls still in
// flight will not touch the collection when they resolve.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = Unauthenticated
	s.tasks = []service.Task{}
	s.metrics.setTasks(0)
}

// Load enters Loading and fetches the full collection once.
//
// A malformed list response counts as an empty collection. Any other
// failure is returned and leaves the store Loading with no tasks.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	epoch := s.epoch
	s.state = Loading
	s.tasks = []service.Task{}
	s.metrics.setTasks(0)
	s.mu.Unlock()

	start := time.Now()
	tasks, err := s.repo.ListTasks(ctx)
	s.metrics.observe(opList, start, err)
	if err != nil {
		if service.KindOf(err) != service.KindMalformed {
			return fmt.Errorf("load tasks: %w", err)
		}
		s.logger.Warn("malformed task list, treating as empty", "error", err)
		tasks = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("discarding stale task list")
		return nil
	}
	s.tasks = dedupe(tasks)
	if dropped := len(tasks) - len(s.tasks); dropped > 0 {
		s.logger.Warn("dropping tasks with repeated ids", "dropped", dropped, "kept", len(s.tasks))
	}
	s.state = Synced
	s.metrics.setTasks(len(s.tasks))
	s.logger.Debug("tasks loaded", "count", len(s.tasks))
	return nil
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tasks returns a copy of the collection in iteration order.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Task(nil), s.tasks...)
}

// Len returns the number of tasks held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// AddTask creates a task and appends the service's record to the end of
// the collection.
func (s *Store) AddTask(ctx context.Context, text string) (service.Task, error) {
	epoch, err := s.begin()
	if err != nil {
		return service.Task{}, fmt.Errorf("add task: %w", err)
	}

	start := time.Now()
	task, err := s.repo.CreateTask(ctx, text)
	if err == nil && task.ID == "" {
		err = &service.Error{Op: "create task", Kind: service.KindMalformed, Err: errors.New("response has no task id")}
	}
	s.metrics.observe(opAdd, start, err)
	if err != nil {
		return service.Task{}, fmt.Errorf("add task: %w", err)
	}

	s.reconcile(epoch, task.ID, &task, moveToEnd)
	return task, nil
}

// DeleteTask deletes a task and removes every entry with that ID.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	epoch, err := s.begin()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	start := time.Now()
	err = s.repo.DeleteTask(ctx, id)
	s.metrics.observe(opDelete, start, err)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.reconcile(epoch, id, nil, replaceInPlace)
	return nil
}

// UpdateTaskStatus requests the toggle of current and replaces the task
// with the service's record.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, current service.Status) (service.Task, error) {
	epoch, err := s.begin()
	if err != nil {
		return service.Task{}, fmt.Errorf("update status: %w", err)
	}

	start := time.Now()
	task, err := s.repo.SetStatus(ctx, id, current.Toggle())
	s.metrics.observe(opStatus, start, err)
	if err != nil {
		return service.Task{}, fmt.Errorf("update status: %w", err)
	}

	return s.reconcile(epoch, id, &task, replaceInPlace), nil
}

// UpdateTaskPriority sets a task's priority and replaces the task with the
// service's record.
func (s *Store) UpdateTaskPriority(ctx context.Context, id string, priority service.Priority) (service.Task, error) {
	epoch, err := s.begin()
	if err != nil {
		return service.Task{}, fmt.Errorf("update priority: %w", err)
	}

	start := time.Now()
	task, err := s.repo.SetPriority(ctx, id, priority)
	s.metrics.observe(opPriority, start, err)
	if err != nil {
		return service.Task{}, fmt.Errorf("update priority: %w", err)
	}

	return s.reconcile(epoch, id, &task, replaceInPlace), nil
}

// begin captures the epoch a mutation starts in.
func (s *Store) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Unauthenticated {
		return 0, service.ErrNotLoggedIn
	}
	return s.epoch, nil
}

// reconcile applies a confirmed result to the collection. A nil record
// removes id. A record with no ID takes id. With replaceInPlace, a record
// whose id is no longer held is dropped. Results from an older epoch are
// ignored. It returns the record as applied.
func (s *Store) reconcile(epoch uint64, id string, rec *service.Task, where placement) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.metrics.setTasks(len(s.tasks)) }()

	if epoch != s.epoch {
		s.logger.Debug("discarding result after reset", "id", id)
		if rec != nil {
			return *rec
		}
		return service.Task{}
	}

	if rec == nil {
		s.tasks = without(s.tasks, id, -1)
		return service.Task{}
	}

	r := *rec
	if r.ID == "" {
		r.ID = id
	}

	switch where {
	case moveToEnd:
		s.tasks = append(without(s.tasks, r.ID, -1), r)
	case replaceInPlace:
		i := indexOf(s.tasks, id)
		if i < 0 {
			s.logger.Debug("dropping result for task no longer held", "id", id)
			return r
		}
		next := append([]service.Task(nil), s.tasks...)
		next[i] = r
		s.tasks = without(next, r.ID, i)
	}
	return r
}

func indexOf(tasks []service.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// without returns tasks minus every entry with id, except the one at keep.
// The input slice is not modified.
func without(tasks []service.Task, id string, keep int) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for i, t := range tasks {
		if t.ID == id && i != keep {
			continue
		}
		out = append(out, t)
	}
	return out
}

// dedupe keeps the first task for each ID. Tasks without an ID share the
// empty ID, so only the first of them survives. The result is never nil.
func dedupe(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
