package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/filter"
	"tasksync/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list [filters]`.
type ListCmd struct {
	status   string
	priority string
	long     bool
}

// SetFilters sets the filter flags (for testing).
func (c *ListCmd) SetFilters(status, priority string) {
	c.status = status
	c.priority = priority
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "tasksync list [--status all|pending|completed] [--priority all|low|medium|high] [--long]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.status, "status", filter.All, "")
	fs.StringVar(&c.status, "s", filter.All, "")
	fs.StringVar(&c.priority, "priority", filter.All, "")
	fs.StringVar(&c.priority, "p", filter.All, "")
	fs.BoolVar(&c.long, "long", false, "")
}

func (c *ListCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	status, err := filter.ParseStatus(c.status)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	priority, err := filter.ParsePriority(c.priority)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	a.Filter = filter.Predicates{Status: status, Priority: priority}

	if !a.Filter.IsDefault() {
		output.FormatFilterHeader(out, a.Filter)
	}

	// Numbers are positions in the full collection so they can be passed
	// straight to toggle, priority and rm.
	rows := a.Visible()
	for _, row := range rows {
		if c.long {
			output.FormatTaskLong(out, row.Pos, row.Task)
		} else {
			output.FormatTask(out, row.Pos, row.Task)
		}
	}

	if len(rows) == 0 && !a.Config.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
