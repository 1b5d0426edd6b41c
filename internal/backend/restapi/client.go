// Package restapi implements the service.Service interface over the task service's REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

const (
	// RequestIDHeader carries a per-request id for log correlation.
	RequestIDHeader = "X-Request-ID"

	// RegisteredMessage is the register response message that signals success.
	RegisteredMessage = "User registered"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 4 << 20
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL string
	authed  *http.Client // carries the bearer credential
	anon    *http.Client // register and login
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a client for cfg.APIURL. Task calls read the credential from
// creds on every request.
func New(cfg *config.Config, creds oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	return NewWithHTTPClient(cfg.APIURL, cfg.Timeout, http.DefaultClient, creds, logger)
}

// NewWithHTTPClient creates a client on top of a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, timeout time.Duration, base *http.Client, creds oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url: %q", baseURL)
	}
	if creds == nil {
		return nil, errors.New("restapi: nil credential source")
	}
	if base == nil {
		base = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	// oauth2.NewClient would cache the token; the Transport asks the
	// source on every request so a cleared credential is never reused.
	authed := &http.Client{
		Transport: &oauth2.Transport{Source: creds, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		authed:  authed,
		anon:    base,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// ListTasks returns the full task collection.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	const op = "list tasks"
	var raw json.RawMessage
	if err := c.do(ctx, c.authed, op, http.MethodGet, "/tasks", nil, &raw); err != nil {
		return nil, err
	}
	tasks, err := decodeTaskList(raw)
	if err != nil {
		return nil, &service.Error{Op: op, Kind: service.KindMalformed, Err: err}
	}
	return tasks, nil
}

// CreateTask creates a pending, medium-priority task.
func (c *Client) CreateTask(ctx context.Context, text string) (service.Task, error) {
	var task service.Task
	err := c.do(ctx, c.authed, "create task", http.MethodPost, "/tasks", service.NewCreateTaskRequest(text), &task)
	return task, err
}

// DeleteTask deletes a task. The response body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, c.authed, "delete task", http.MethodDelete, taskPath(id), nil, nil)
}

// SetStatus patches a task's status.
func (c *Client) SetStatus(ctx context.Context, id string, status service.Status) (service.Task, error) {
	var task service.Task
	err := c.do(ctx, c.authed, "set status", http.MethodPatch, taskPath(id)+"/status", service.StatusRequest{Status: status}, &task)
	return task, err
}

// SetPriority patches a task's priority.
func (c *Client) SetPriority(ctx context.Context, id string, priority service.Priority) (service.Task, error) {
	var task service.Task
	err := c.do(ctx, c.authed, "set priority", http.MethodPatch, taskPath(id)+"/priority", service.PriorityRequest{Priority: priority}, &task)
	return task, err
}

// messageResponse is the body of register and login responses.
type messageResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Register creates an account. The service reports the outcome in the
// message field regardless of HTTP status.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	const op = "register"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, c.anon, op, http.MethodPost, "/register", service.Credentials{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body messageResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body)
	if body.Message == RegisteredMessage {
		return body.Message, nil
	}
	msg := body.Message
	if msg == "" {
		msg = service.SignupFailedMessage
	}
	return "", &service.Error{Op: op, Kind: service.KindRejected, Code: resp.StatusCode, Message: msg}
}

// Login exchanges a username and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "login"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, c.anon, op, http.MethodPost, "/login", service.Credentials{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body messageResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body)
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 && body.Token != "" {
		return body.Token, nil
	}
	msg := body.Message
	if msg == "" {
		msg = service.LoginFailedMessage
	}
	return "", &service.Error{Op: op, Kind: service.KindRejected, Code: resp.StatusCode, Message: msg}
}

// do performs a JSON request and decodes a 2xx response into out (if non-nil).
func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.send(ctx, hc, op, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapHTTPError(op, err)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			if raw, ok := out.(*json.RawMessage); ok {
				*raw = nil
				return nil
			}
		}
		return &service.Error{Op: op, Kind: service.KindMalformed, Code: resp.StatusCode, Err: err}
	}
	return nil
}

// send builds and issues a request. Transport failures are classified here.
// The caller owns the response body.
func (c *Client) send(ctx context.Context, hc *http.Client, op, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, wrapTransportError(op, err)
	}
	c.logger.Debug("request", "op", op, "method", method, "path", path, "request_id", requestID,
		"status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// wrapTransportError classifies a failure to complete a request.
func wrapTransportError(op string, err error) error {
	if errors.Is(err, service.ErrNotLoggedIn) {
		return &service.Error{Op: op, Kind: service.KindAuth, Err: service.ErrNotLoggedIn}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &service.Error{Op: op, Kind: service.KindTransport, Err: errors.New("request timed out")}
	}
	return &service.Error{Op: op, Kind: service.KindTransport, Err: err}
}

// wrapHTTPError classifies a non-2xx response.
func wrapHTTPError(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &service.Error{Op: op, Kind: service.KindTransport, Err: err}
	}

	kind := service.KindRejected
	if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
		kind = service.KindAuth
	}
	msg := gerr.Message
	if msg == "" {
		msg = messageFromBody(gerr.Body)
	}
	return &service.Error{Op: op, Kind: kind, Code: gerr.Code, Message: msg}
}

// messageFromBody extracts {"message": ...} or {"error": "..."} from an error body.
func messageFromBody(body string) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(payload.Error, &s); err == nil {
		return s
	}
	return ""
}
