package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"
)

// Storage persists a single credential across process runs.
type Storage interface {
	// Load returns the stored token, or nil if none is stored.
	Load() (*oauth2.Token, error)

	// Save replaces the stored token.
	Save(token *oauth2.Token) error

	// Remove deletes the stored token. Removing an absent token is not an error.
	Remove() error
}

// FileStorage keeps the credential in a JSON file with mode 0600.
type FileStorage struct {
	path string
}

// NewFileStorage creates a FileStorage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(s.path), err)
	}
	return decodeToken(data)
}

func (s *FileStorage) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *FileStorage) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

const tokenKey = "token"

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStorage keeps the credential under a single key of a SQLite
// key/value table.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (and creates if missing) the database at path.
func OpenSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Load() (*oauth2.Token, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, tokenKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return decodeToken([]byte(value))
}

func (s *SQLiteStorage) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		tokenKey, string(data),
	)
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Remove() error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// LazySQLiteStorage is a SQLiteStorage that opens the database on first
// use, so runs that never touch the credential never create the file.
type LazySQLiteStorage struct {
	path string

	mu  sync.Mutex
	db  *SQLiteStorage
	err error
}

// NewLazySQLiteStorage returns storage for the database at path without
// opening it.
func NewLazySQLiteStorage(path string) *LazySQLiteStorage {
	return &LazySQLiteStorage{path: path}
}

func (s *LazySQLiteStorage) open() (*SQLiteStorage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil && s.err == nil {
		s.db, s.err = OpenSQLiteStorage(context.Background(), s.path)
	}
	return s.db, s.err
}

func (s *LazySQLiteStorage) Load() (*oauth2.Token, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	return db.Load()
}

func (s *LazySQLiteStorage) Save(token *oauth2.Token) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	return db.Save(token)
}

func (s *LazySQLiteStorage) Remove() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	return db.Remove()
}

// Opened reports whether the database has been opened.
func (s *LazySQLiteStorage) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Close closes the database if it was opened.
func (s *LazySQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// MemoryStorage keeps the credential in memory. Used by tests.
type MemoryStorage struct {
	mu    sync.Mutex
	token *oauth2.Token

	// Error injection for testing
	LoadErr   error
	SaveErr   error
	RemoveErr error
}

func (s *MemoryStorage) Load() (*oauth2.Token, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	tok := *s.token
	return &tok, nil
}

func (s *MemoryStorage) Save(token *oauth2.Token) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := *token
	s.token = &tok
	return nil
}

func (s *MemoryStorage) Remove() error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// errCorruptToken marks stored data that is not a usable token.
var errCorruptToken = errors.New("stored token is corrupt")

func decodeToken(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptToken, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", errCorruptToken)
	}
	return &token, nil
}
