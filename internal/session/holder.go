// Package session holds the bearer credential and persists it across runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"tasksync/internal/service"
)

// Listener is notified whenever the held credential changes.
// token is empty after a Clear.
type Listener interface {
	CredentialChanged(ctx context.Context, token string) error
}

// Holder owns the current credential. It is the only writer of the
// credential; everything else reads it through Get or Token.
type Holder struct {
	storage Storage
	logger  *slog.Logger

	mu        sync.RWMutex
	token     string
	listeners []Listener
}

// NewHolder creates a Holder backed by storage. The holder starts empty;
// call Restore to pick up a persisted credential.
func NewHolder(storage Storage, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{storage: storage, logger: logger}
}

// Subscribe registers l for credential changes.
func (h *Holder) Subscribe(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// Get returns the current credential or "".
func (h *Holder) Get() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Token implements oauth2.TokenSource.
// It returns service.ErrNotLoggedIn when no credential is held.
func (h *Holder) Token() (*oauth2.Token, error) {
	token := h.Get()
	if token == "" {
		return nil, service.ErrNotLoggedIn
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Set persists token and makes it current. Listeners are notified only if
// the credential actually changed.
func (h *Holder) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty credential")
	}
	if err := h.storage.Save(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return h.swap(ctx, token)
}

// Clear removes the credential from storage and memory. Listeners are
// notified even when the storage removal fails.
func (h *Holder) Clear(ctx context.Context) error {
	var errs []error
	if err := h.storage.Remove(); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove token: %w", err))
	}
	if err := h.swap(ctx, ""); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Restore loads the persisted credential, as after a restart.
// A corrupt stored token is logged and treated as absent.
func (h *Holder) Restore(ctx context.Context) error {
	token, err := h.storage.Load()
	if errors.Is(err, errCorruptToken) {
		h.logger.Warn("ignoring stored credential", "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	if token == nil || token.AccessToken == "" {
		return nil
	}
	return h.swap(ctx, token.AccessToken)
}

// Stored reports whether durable storage holds a usable credential.
func (h *Holder) Stored() (bool, error) {
	token, err := h.storage.Load()
	if errors.Is(err, errCorruptToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

func (h *Holder) swap(ctx context.Context, token string) error {
	h.mu.Lock()
	changed := h.token != token
	h.token = token
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	if !changed {
		return nil
	}
	h.logger.Debug("credential changed", "present", token != "")

	var errs []error
	for _, l := range listeners {
		if err := l.CredentialChanged(ctx, token); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
