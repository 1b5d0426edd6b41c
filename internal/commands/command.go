// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a stored credential.
	// The dispatcher restores the session and loads tasks before Run.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// a is always provided; a.Config carries the common flags.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, a *app.App, args []string, out, errOut io.Writer) int
}

// reportError prints err in the CLI's error format and returns its exit code.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		fmt.Fprintln(errOut, "error: not logged in (run: tasksync login)")
	case service.KindOf(err) == service.KindAuth:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	case service.KindOf(err) == service.KindRejected:
		fmt.Fprintf(errOut, "error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return exitcode.FromError(err)
}

// ok prints the success acknowledgement unless quiet.
func ok(a *app.App, out io.Writer) {
	if !a.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
}
