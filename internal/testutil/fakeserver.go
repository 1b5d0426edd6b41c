package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tasksync/internal/service"
)

// Request is a request observed by FakeServer.
type Request struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
	Body      []byte
}

type userKey struct{}

// FakeServer is an in-process HTTP fake of the remote task service.
// Serve it with httptest.NewServer.
type FakeServer struct {
	router chi.Router

	mu       sync.Mutex
	users    map[string]string         // username -> password
	tokens   map[string]string         // token -> username
	tasks    map[string][]service.Task // username -> tasks
	requests []Request

	listBody   []byte
	failStatus int
	failBody   string
}

// NewFakeServer creates a FakeServer with no users.
func NewFakeServer() *FakeServer {
	s := &FakeServer{
		users:  make(map[string]string),
		tokens: make(map[string]string),
		tasks:  make(map[string][]service.Task),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/tasks", s.listTasks)
		r.Post("/tasks", s.createTask)
		r.Delete("/tasks/{id}", s.deleteTask)
		r.Patch("/tasks/{id}/status", s.setStatus)
		r.Patch("/tasks/{id}/priority", s.setPriority)
	})
	s.router = r
	return s
}

func (s *FakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed creates an account and returns a valid bearer token for it.
func (s *FakeServer) Seed(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
	return s.issueToken(username)
}

// AddTask seeds a task for username. An empty ID is assigned.
func (s *FakeServer) AddTask(username string, task service.Task) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = newID()
	}
	s.tasks[username] = append(s.tasks[username], task)
	return task
}

// Tasks returns a copy of username's server-side tasks.
func (s *FakeServer) Tasks(username string) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Task(nil), s.tasks[username]...)
}

// Requests returns the requests observed so far.
func (s *FakeServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// SetListBody makes GET /tasks answer 200 with body verbatim. nil restores
// normal behaviour.
func (s *FakeServer) SetListBody(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listBody = body
}

// SetFailure makes every authenticated route answer status with body.
// A zero status restores normal behaviour.
func (s *FakeServer) SetFailure(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failBody = body
}

func (s *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-ID"),
			Body:      body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *FakeServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		username, known := s.tokens[token]
		failStatus, failBody := s.failStatus, s.failBody
		s.mu.Unlock()

		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		if failStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failStatus)
			_, _ = io.WriteString(w, failBody)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	})
}

func (s *FakeServer) register(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[creds.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
		return
	}
	s.users[creds.Username] = creds.Password
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered"})
}

func (s *FakeServer) login(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[creds.Username]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.issueToken(creds.Username)})
}

func (s *FakeServer) listTasks(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value(userKey{}).(string)

	s.mu.Lock()
	body := s.listBody
	tasks := append([]service.Task{}, s.tasks[username]...)
	s.mu.Unlock()

	if body != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *FakeServer) createTask(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value(userKey{}).(string)

	var req service.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Text is required"})
		return
	}
	task := service.Task{ID: newID(), Text: req.Text, Status: req.Status, Priority: req.Priority}

	s.mu.Lock()
	s.tasks[username] = append(s.tasks[username], task)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, task)
}

func (s *FakeServer) deleteTask(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value(userKey{}).(string)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[username]
	for i, t := range tasks {
		if t.ID == id {
			s.tasks[username] = append(tasks[:i:i], tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func (s *FakeServer) setStatus(w http.ResponseWriter, r *http.Request) {
	var req service.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid status"})
		return
	}
	s.update(w, r, func(t *service.Task) { t.Status = req.Status })
}

func (s *FakeServer) setPriority(w http.ResponseWriter, r *http.Request) {
	var req service.PriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Priority.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid priority"})
		return
	}
	s.update(w, r, func(t *service.Task) { t.Priority = req.Priority })
}

func (s *FakeServer) update(w http.ResponseWriter, r *http.Request, apply func(*service.Task)) {
	username := r.Context().Value(userKey{}).(string)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[username]
	for i := range tasks {
		if tasks[i].ID == id {
			apply(&tasks[i])
			writeJSON(w, http.StatusOK, tasks[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

// issueToken must be called with s.mu held.
func (s *FakeServer) issueToken(username string) string {
	token := "tok-" + uuid.NewString()
	s.tokens[token] = username
	return token
}

// newID returns a 24-character hex id, the shape the real service uses.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
