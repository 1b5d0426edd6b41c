package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"tasksync/internal/app"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/testutil"
)

// testFactory creates an app factory around the given FakeService and
// credential storage. The last config it saw is stored in *seen.
func testFactory(svc *testutil.FakeService, storage session.Storage, seen **config.Config) cli.AppFactory {
	return func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		if seen != nil {
			*seen = cfg
		}
		return app.NewWithService(cfg, svc, storage, nil), nil
	}
}

// newDispatcher isolates the config directory and returns a dispatcher over svc.
func newDispatcher(t *testing.T, svc *testutil.FakeService, storage session.Storage) *cli.Dispatcher {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc, storage, nil))
}

func loggedInStorage(t *testing.T) *session.MemoryStorage {
	t.Helper()
	storage := &session.MemoryStorage{}
	if err := storage.Save(&oauth2.Token{AccessToken: "stored", TokenType: "Bearer"}); err != nil {
		t.Fatal(err)
	}
	return storage
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"unknowncmd"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr.String() != "" {
		t.Errorf("expected no stderr, got %q", stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("Usage:")) {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"version"}, &stdout, &stderr)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr.String() != "" {
		t.Errorf("expected no stderr, got %q", stderr.String())
	}
	if stdout.String() != "tasksync 0.1.0\n" {
		t.Errorf("expected 'tasksync 0.1.0\\n', got %q", stdout.String())
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"help", "--unknown"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_NoArgsLists(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "1", Text: "Buy milk", Status: service.StatusPending, Priority: service.PriorityMedium})
	dispatcher := newDispatcher(t, svc, loggedInStorage(t))

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), nil, &stdout, &stderr)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr.String())
	}
	if stdout.String() != "   1  [ ] Buy milk (medium)\n" {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
	if svc.ListCalls != 1 {
		t.Errorf("expected 1 list call, got %d", svc.ListCalls)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()
	dispatcher := newDispatcher(t, svc, &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"add", "x"}, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: not logged in (run: tasksync login)\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
	if svc.ListCalls != 0 || len(svc.CreateRequests) != 0 {
		t.Error("service should not be called")
	}
}

func TestDispatcher_CredentialReadFailure(t *testing.T) {
	storage := &session.MemoryStorage{LoadErr: errors.New("disk on fire")}
	dispatcher := newDispatcher(t, testutil.NewFakeService(), storage)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"list"}, &stdout, &stderr)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: failed to read credential: disk on fire\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

func TestDispatcher_InitialLoadFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		prefix string
	}{
		{"transport", testutil.ErrTransport, exitcode.BackendError, "error: backend error: load tasks:"},
		{"unauthorized", &service.Error{Op: "list tasks", Kind: service.KindAuth, Code: 401}, exitcode.AuthError, "error: auth error: load tasks:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.ListErr = tt.err
			dispatcher := newDispatcher(t, svc, loggedInStorage(t))

			var stdout, stderr bytes.Buffer
			code := dispatcher.Run(context.Background(), []string{"list"}, &stdout, &stderr)

			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if !strings.HasPrefix(stderr.String(), tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, stderr.String())
			}
			if stdout.String() != "" {
				t.Errorf("expected no stdout, got %q", stdout.String())
			}
		})
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	factory := func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return nil, errors.New("boom")
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"list"}, &stdout, &stderr)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr.String() != "error: backend error: boom\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestDispatcher_CommonFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TASKSYNC_TIMEOUT", "3s")
	configDir := t.TempDir()
	var seen *config.Config
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService(), &session.MemoryStorage{}, &seen))

	var stdout, stderr bytes.Buffer
	args := []string{"version", "--config", configDir, "--api-url", "http://localhost:8080/", "--quiet", "--debug"}
	code := dispatcher.Run(context.Background(), args, &stdout, &stderr)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr.String())
	}
	if seen == nil {
		t.Fatal("factory not called")
	}
	if seen.Dir != configDir {
		t.Errorf("Dir = %q, want %q", seen.Dir, configDir)
	}
	if seen.APIURL != "http://localhost:8080" {
		t.Errorf("APIURL = %q", seen.APIURL)
	}
	if seen.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s from the environment", seen.Timeout)
	}
	if !seen.Quiet || !seen.Debug {
		t.Errorf("Quiet = %v, Debug = %v", seen.Quiet, seen.Debug)
	}
}

func TestDispatcher_InvalidAPIURL(t *testing.T) {
	dispatcher := newDispatcher(t, testutil.NewFakeService(), &session.MemoryStorage{})

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"version", "--api-url", "localhost"}, &stdout, &stderr)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: invalid api_url: \"localhost\"\n"
	if stderr.String() != expected {
		t.Errorf("expected %q, got %q", expected, stderr.String())
	}
}

// TestDispatcher_Session runs a login and later commands against one
// credential storage, as separate invocations of the binary would.
func TestDispatcher_Session(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddUser("ada", "secret")
	storage := &session.MemoryStorage{}
	dispatcher := newDispatcher(t, svc, storage)
	ctx := context.Background()

	steps := []struct {
		args   []string
		code   int
		stdout string
	}{
		{[]string{"login", "-u", "ada", "--password", "secret"}, exitcode.Success, "ok (0 tasks)\n"},
		{[]string{"add", "Buy", "milk"}, exitcode.Success, "ok\n"},
		{[]string{"add", "--quiet", "Call mom"}, exitcode.Success, ""},
		{[]string{"priority", "2", "high"}, exitcode.Success, "Call mom: pending, high\n"},
		{[]string{"done", "1"}, exitcode.Success, "Buy milk: completed, medium\n"},
		{[]string{"ls", "-s", "pending"}, exitcode.Success, "------------\nstatus: pending, priority: all\n------------\n   2  [ ] Call mom (high)\n"},
		{[]string{"rm", "1"}, exitcode.Success, "ok\n"},
		{[]string{}, exitcode.Success, "   1  [ ] Call mom (high)\n"},
		{[]string{"logout"}, exitcode.Success, "ok\n"},
		{[]string{"logout"}, exitcode.Success, "not logged in\n"},
		{[]string{"list"}, exitcode.AuthError, ""},
	}
	for _, step := range steps {
		var stdout, stderr bytes.Buffer
		code := dispatcher.Run(ctx, step.args, &stdout, &stderr)
		if code != step.code {
			t.Fatalf("%v: expected exit code %d, got %d (%s)", step.args, step.code, code, stderr.String())
		}
		if stdout.String() != step.stdout {
			t.Errorf("%v: expected %q, got %q", step.args, step.stdout, stdout.String())
		}
	}
}

func TestDispatcher_SQLiteSessionOpenedOnDemand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, config.ConfigFile), []byte("session_store: sqlite\n"), 0600); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(configDir, config.SessionDBFile)
	factory := func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg, nil)
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	for _, args := range [][]string{{"version"}, {"help"}, {"config"}} {
		var stdout, stderr bytes.Buffer
		code := dispatcher.Run(context.Background(), append(args, "--config", configDir), &stdout, &stderr)
		if code != exitcode.Success {
			t.Fatalf("%v: expected exit code %d, got %d (%s)", args, exitcode.Success, code, stderr.String())
		}
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Fatalf("%v: session database created: %v", args, err)
		}
	}

	var stdout, stderr bytes.Buffer
	code := dispatcher.Run(context.Background(), []string{"logout", "--config", configDir}, &stdout, &stderr)
	if code != exitcode.Success {
		t.Fatalf("logout: expected exit code %d, got %d (%s)", exitcode.Success, code, stderr.String())
	}
	if stdout.String() != "not logged in\n" {
		t.Errorf("logout: unexpected stdout %q", stdout.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("session database not created by logout: %v", err)
	}
}
