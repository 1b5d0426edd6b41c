package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	creds credentialFlags
}

func (c *RegisterCmd) Name() string      { return "register" }
func (c *RegisterCmd) Aliases() []string { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string  { return "Create an account" }
func (c *RegisterCmd) Usage() string {
	return "tasksync register --username <name> [--password <password>]"
}
func (c *RegisterCmd) NeedsAuth() bool { return false }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	c.creds.register(fs)
}

func (c *RegisterCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	username, password, valid := c.creds.resolve(args, errOut)
	if !valid {
		return exitcode.UserError
	}

	msg, err := a.Register(ctx, username, password)
	if err != nil {
		if service.KindOf(err) == service.KindRejected {
			fmt.Fprintf(errOut, "error: %s\n", service.MessageOf(err, service.SignupFailedMessage))
			return exitcode.UserError
		}
		return reportError(errOut, err)
	}

	if !a.Config.Quiet {
		fmt.Fprintf(out, "%s (run: tasksync login --username %s)\n", msg, username)
	}
	return exitcode.Success
}
