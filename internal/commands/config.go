package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&ConfigCmd{})
}

// ConfigCmd prints or changes settings in config.yaml.
type ConfigCmd struct{}

func (c *ConfigCmd) Name() string      { return "config" }
func (c *ConfigCmd) Aliases() []string { return nil }
func (c *ConfigCmd) Synopsis() string  { return "Show or change settings" }
func (c *ConfigCmd) Usage() string     { return "tasksync config [set <key> <value>]" }
func (c *ConfigCmd) NeedsAuth() bool   { return false }

func (c *ConfigCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ConfigCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		data, err := a.Config.YAML()
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		_, _ = out.Write(data)
		return exitcode.Success
	}

	if args[0] != "set" {
		fmt.Fprintf(errOut, "error: unknown config subcommand: %s\n", args[0])
		return exitcode.UserError
	}
	if len(args) != 3 {
		fmt.Fprintf(errOut, "error: usage: %s (keys: %s)\n", c.Usage(), strings.Join(config.Keys(), ", "))
		return exitcode.UserError
	}

	// Start from the file alone so flag and environment overrides of this
	// run are not persisted.
	persisted, err := config.LoadFile(a.Config.Dir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if err := persisted.Set(args[1], args[2]); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if err := persisted.Save(); err != nil {
		fmt.Fprintf(errOut, "error: failed to save config: %v\n", err)
		return exitcode.BackendError
	}

	ok(a, out)
	return exitcode.Success
}
