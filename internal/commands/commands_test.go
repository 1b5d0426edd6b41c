package commands_test

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"strings"
	"testing"

	"tasksync/internal/app"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/testutil"
)

// newApp creates an App around svc. When loggedIn is true a credential is
// stored and the task store is loaded, as the dispatcher does for commands
// that need auth.
func newApp(t *testing.T, svc *testutil.FakeService, loggedIn, quiet bool) *app.App {
	t.Helper()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	cfg.Quiet = quiet

	a := app.NewWithService(cfg, svc, &session.MemoryStorage{}, nil)
	if loggedIn {
		if err := a.Session.Set(context.Background(), "test-token"); err != nil {
			t.Fatalf("Session.Set: %v", err)
		}
	}
	return a
}

// runCommand is a helper to run a command against an App.
func runCommand(t *testing.T, cmd commands.Command, a *app.App, args []string) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), a, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func seededService() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "1", Text: "Buy milk", Status: service.StatusPending, Priority: service.PriorityMedium})
	svc.AddTask(service.Task{ID: "2", Text: "Buy eggs", Status: service.StatusCompleted, Priority: service.PriorityHigh})
	svc.AddTask(service.Task{ID: "3", Text: "Call mom", Status: service.StatusPending, Priority: service.PriorityHigh})
	return svc
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, newApp(t, testutil.NewFakeService(), false, false), nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, newApp(t, testutil.NewFakeService(), false, false), nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("help output should contain 'Usage:'")
	}
	for _, c := range commands.DefaultRegistry.All() {
		if !strings.Contains(stdout, "tasksync "+c.Name()) {
			t.Errorf("help output does not mention %s", c.Name())
		}
	}
}

// Tests for list command
func TestListCommand_AllTasks(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, a, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "list_all", stdout)
}

func TestListCommand_Filtered(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, a, []string{"--status", "pending", "--priority", "high"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	// Numbers stay the positions in the full collection.
	testutil.GoldenString(t, "list_filtered", stdout)
}

func TestListCommand_Long(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, a, []string{"-s", "completed", "--long"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "------------\nstatus: completed, priority: all\n------------\n   2  [x] Buy eggs (high)  2\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), true, false)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, a, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected %q, got %q", "no tasks found\n", stdout)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), true, true)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, a, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
}

func TestListCommand_NoMatches(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	cmd := &commands.ListCmd{}
	cmd.SetFilters("completed", "low")
	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), a, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasSuffix(outBuf.String(), "no tasks found\n") {
		t.Errorf("expected 'no tasks found', got %q", outBuf.String())
	}
}

func TestListCommand_InvalidFilter(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	_, stderr, code := runCommand(t, &commands.ListCmd{}, a, []string{"--status", "done"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid status filter: done") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	a := newApp(t, svc, true, false)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"Buy", "milk"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	if len(svc.CreateRequests) != 1 || svc.CreateRequests[0] != service.NewCreateTaskRequest("Buy milk") {
		t.Errorf("unexpected create requests %+v", svc.CreateRequests)
	}
	tasks := a.Tasks.Tasks()
	if len(tasks) != 1 || tasks[0].Text != "Buy milk" {
		t.Errorf("unexpected store contents %+v", tasks)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), true, true)

	stdout, _, code := runCommand(t, &commands.AddCmd{}, a, []string{"Buy milk"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoText(t *testing.T) {
	svc := testutil.NewFakeService()
	a := newApp(t, svc, true, false)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"  "})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: text required\n" {
		t.Errorf("expected 'error: text required\\n', got %q", stderr)
	}
	if len(svc.CreateRequests) != 0 {
		t.Error("service should not be called")
	}
}

func TestAddCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateErr = testutil.ErrTransport
	a := newApp(t, svc, true, false)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"x"})

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: add task:") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_NotLoggedIn(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), false, false)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, a, []string{"x"})

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not logged in (run: tasksync login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for toggle command
func TestToggleCommand_Success(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, false)

	stdout, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"1"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "Buy milk: completed, medium\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if len(svc.StatusRequests) != 1 || svc.StatusRequests[0] != service.StatusCompleted {
		t.Errorf("unexpected status requests %v", svc.StatusRequests)
	}
	if a.Tasks.Tasks()[0].Status != service.StatusCompleted {
		t.Error("store not reconciled")
	}
}

func TestToggleCommand_CompletedBecomesPending(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, true)

	_, _, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"2"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if len(svc.StatusRequests) != 1 || svc.StatusRequests[0] != service.StatusPending {
		t.Errorf("unexpected status requests %v", svc.StatusRequests)
	}
}

func TestToggleCommand_NoRef(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, nil)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected 'error: task reference required\\n', got %q", stderr)
	}
}

func TestToggleCommand_OutOfRange(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, false)

	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"5"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("expected out of range error, got %q", stderr)
	}
	if len(svc.StatusRequests) != 0 {
		t.Error("service should not be called")
	}
}

func TestToggleCommand_Rejected(t *testing.T) {
	svc := seededService()
	svc.SetStatusErr = testutil.ErrNotFound
	a := newApp(t, svc, true, false)
	before := a.Tasks.Tasks()

	_, stderr, code := runCommand(t, &commands.ToggleCmd{}, a, []string{"1"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: update status: fake: Task not found (HTTP 404)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if after := a.Tasks.Tasks(); after[0] != before[0] {
		t.Error("store changed after failed toggle")
	}
}

// Tests for priority command
func TestPriorityCommand_Success(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, false)

	stdout, stderr, code := runCommand(t, &commands.PriorityCmd{}, a, []string{"1", "high"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "Buy milk: pending, high\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if len(svc.PriorityRequests) != 1 || svc.PriorityRequests[0] != service.PriorityHigh {
		t.Errorf("unexpected priority requests %v", svc.PriorityRequests)
	}
}

func TestPriorityCommand_InvalidPriority(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, false)

	_, stderr, code := runCommand(t, &commands.PriorityCmd{}, a, []string{"1", "urgent"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid priority: urgent") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.PriorityRequests) != 0 {
		t.Error("service should not be called")
	}
}

func TestPriorityCommand_MissingArgs(t *testing.T) {
	a := newApp(t, seededService(), true, false)

	_, stderr, code := runCommand(t, &commands.PriorityCmd{}, a, []string{"1"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference and priority required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	svc := seededService()
	a := newApp(t, svc, true, false)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"2"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	for _, tk := range a.Tasks.Tasks() {
		if tk.ID == "2" {
			t.Error("task 2 still in store")
		}
	}
	if len(svc.Tasks()) != 2 {
		t.Errorf("expected 2 tasks on the service, got %d", len(svc.Tasks()))
	}
}

func TestRmCommand_ByID(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "64f1a2b3c4d5e6f708090a0b", Text: "x", Status: service.StatusPending, Priority: service.PriorityLow})
	a := newApp(t, svc, true, true)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"64f1a2b3c4d5e6f708090a0b"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if a.Tasks.Len() != 0 {
		t.Error("task still in store")
	}
}

func TestRmCommand_NumberIsListPosition(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "2", Text: "first row", Status: service.StatusPending, Priority: service.PriorityLow})
	svc.AddTask(service.Task{ID: "1", Text: "second row", Status: service.StatusPending, Priority: service.PriorityLow})
	a := newApp(t, svc, true, true)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"1"})

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	tasks := a.Tasks.Tasks()
	if len(tasks) != 1 || tasks[0].Text != "second row" {
		t.Errorf("expected only 'second row' to remain, got %+v", tasks)
	}

	_, stderr, code = runCommand(t, &commands.RmCmd{}, a, []string{"id:1"})
	if code != exitcode.Success || a.Tasks.Len() != 0 {
		t.Errorf("rm id:1: code %d, %d tasks left (%s)", code, a.Tasks.Len(), stderr)
	}
}

func TestRmCommand_TaskWithoutID(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{Text: "orphan", Status: service.StatusPending, Priority: service.PriorityLow})
	a := newApp(t, svc, true, false)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, a, []string{"1"})

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task 1 has no id\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Tasks()) != 1 || a.Tasks.Len() != 1 {
		t.Error("task without id was deleted")
	}
}

func TestRmCommand_TransportFailureLeavesStore(t *testing.T) {
	svc := seededService()
	svc.DeleteErr = testutil.ErrTransport
	a := newApp(t, svc, true, false)

	_, _, code := runCommand(t, &commands.RmCmd{}, a, []string{"1"})

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if a.Tasks.Len() != 3 {
		t.Errorf("expected 3 tasks in store, got %d", a.Tasks.Len())
	}
}

// Tests for config command
func TestConfigCommand_Print(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), false, false)

	stdout, stderr, code := runCommand(t, &commands.ConfigCmd{}, a, nil)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"api_url: " + config.DefaultAPIURL, "timeout: 10s", "session_store: file"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigCommand_Set(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), false, false)

	stdout, stderr, code := runCommand(t, &commands.ConfigCmd{}, a, []string{"set", "timeout", "5s"})

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	data, err := os.ReadFile(a.Config.ConfigPath())
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "timeout: 5s") {
		t.Errorf("config file missing timeout:\n%s", data)
	}
}

func TestConfigCommand_SetInvalid(t *testing.T) {
	a := newApp(t, testutil.NewFakeService(), false, false)

	tests := [][]string{
		{"set", "colour", "red"},
		{"set", "timeout", "soon"},
		{"set", "timeout"},
		{"get", "timeout"},
	}
	for _, args := range tests {
		_, stderr, code := runCommand(t, &commands.ConfigCmd{}, a, args)
		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", args, exitcode.UserError, code)
		}
		if !strings.HasPrefix(stderr, "error: ") {
			t.Errorf("%v: unexpected stderr %q", args, stderr)
		}
	}
	if _, err := os.Stat(a.Config.ConfigPath()); !os.IsNotExist(err) {
		t.Error("config file should not be written")
	}
}
