package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                           List all tasks
  tasksync list [common flags] [--status <s>] [--priority <p>] [--long]
  tasksync add [common flags] <text...>
  tasksync toggle [common flags] <ref>
  tasksync priority [common flags] <ref> <low|medium|high>
  tasksync rm [common flags] <ref>
  tasksync register [common flags] --username <name> [--password <password>]
  tasksync login [common flags] --username <name> [--password <password>]
  tasksync logout [common flags]
  tasksync config [common flags] [set <key> <value>]
  tasksync help
  tasksync version

A <ref> is a task number as printed by list, or a task ID.
Numeric task IDs are written id:<ID>.
The password may also be given in TASKSYNC_PASSWORD.

Common flags:
  --config <dir>   Override config directory
  --api-url <url>  Override the task service URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
