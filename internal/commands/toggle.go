package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
)

func init() {
	Register(&ToggleCmd{})
}

// ToggleCmd implements the toggle command: pending becomes completed and
// completed becomes pending.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string      { return "toggle" }
func (c *ToggleCmd) Aliases() []string { return []string{"done"} }
func (c *ToggleCmd) Synopsis() string  { return "Toggle a task between pending and completed" }
func (c *ToggleCmd) Usage() string     { return "tasksync toggle <ref>" }
func (c *ToggleCmd) NeedsAuth() bool   { return true }

func (c *ToggleCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ToggleCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	task, code := resolveArg(a, args, errOut)
	if code != exitcode.Success {
		return code
	}

	updated, err := a.Tasks.UpdateTaskStatus(ctx, task.ID, task.Status)
	if err != nil {
		return reportError(errOut, err)
	}

	if !a.Config.Quiet {
		output.FormatTaskResult(out, updated)
	}
	return exitcode.Success
}
