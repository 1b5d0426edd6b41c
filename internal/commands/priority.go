package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/service"
)

func init() {
	Register(&PriorityCmd{})
}

// PriorityCmd implements the priority command.
type PriorityCmd struct{}

func (c *PriorityCmd) Name() string      { return "priority" }
func (c *PriorityCmd) Aliases() []string { return []string{"prio"} }
func (c *PriorityCmd) Synopsis() string  { return "Set a task's priority" }
func (c *PriorityCmd) Usage() string     { return "tasksync priority <ref> <low|medium|high>" }
func (c *PriorityCmd) NeedsAuth() bool   { return true }

func (c *PriorityCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PriorityCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: task reference and priority required")
		return exitcode.UserError
	}
	if len(args) > 2 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[2])
		return exitcode.UserError
	}

	priority, err := service.ParsePriority(args[1])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task, code := resolveArg(a, args[:1], errOut)
	if code != exitcode.Success {
		return code
	}

	updated, err := a.Tasks.UpdateTaskPriority(ctx, task.ID, priority)
	if err != nil {
		return reportError(errOut, err)
	}

	if !a.Config.Quiet {
		output.FormatTaskResult(out, updated)
	}
	return exitcode.Success
}
