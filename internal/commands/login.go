package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// PasswordEnv supplies the password when --password is not given.
const PasswordEnv = "TASKSYNC_PASSWORD"

func init() {
	Register(&LoginCmd{})
}

// credentialFlags are shared by login and register.
type credentialFlags struct {
	username string
	password string
}

func (f *credentialFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.username, "username", "", "")
	fs.StringVar(&f.username, "u", "", "")
	fs.StringVar(&f.password, "password", "", "")
}

// resolve returns the username and password, falling back to PasswordEnv.
func (f *credentialFlags) resolve(args []string, errOut io.Writer) (string, string, bool) {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return "", "", false
	}
	username := strings.TrimSpace(f.username)
	if username == "" {
		fmt.Fprintln(errOut, "error: --username required")
		return "", "", false
	}
	password := f.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		fmt.Fprintf(errOut, "error: --password or %s required\n", PasswordEnv)
		return "", "", false
	}
	return username, password, true
}

// LoginCmd implements the login command.
type LoginCmd struct {
	creds credentialFlags
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in and store the credential" }
func (c *LoginCmd) Usage() string     { return "tasksync login --username <name> [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	c.creds.register(fs)
}

func (c *LoginCmd) Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int {
	username, password, valid := c.creds.resolve(args, errOut)
	if !valid {
		return exitcode.UserError
	}

	before := a.Session.Get()
	if err := a.Login(ctx, username, password); err != nil {
		if a.LoggedIn() && a.Session.Get() != before {
			// The credential is stored; only the first fetch failed.
			fmt.Fprintf(errOut, "error: logged in, but failed to load tasks: %v\n", err)
			return exitcode.FromError(err)
		}
		if service.KindOf(err) == service.KindRejected {
			fmt.Fprintf(errOut, "error: %s\n", service.MessageOf(err, service.LoginFailedMessage))
			return exitcode.AuthError
		}
		return reportError(errOut, err)
	}

	if !a.Config.Quiet {
		fmt.Fprintf(out, "ok (%d tasks)\n", a.Tasks.Len())
	}
	return exitcode.Success
}
