// Package commands holds the todoseq subcommands. Each registers itself in
// DefaultRegistry from init; retrieve is the default.
package commands

import (
	"context"
	"flag"
	"io"

	"todoseq/internal/config"
	"todoseq/internal/service"
)

// Command is one todoseq subcommand.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis and Usage are printed by help.
	Synopsis() string
	Usage() string

	// NeedsBackend reports whether Run needs a task backend. The dispatcher
	// builds one (or checks its credentials) only for these commands.
	NeedsBackend() bool

	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command after flag parsing and returns the exit code.
	// cfg carries the loaded settings and a logger named for the command.
	// svc is nil when NeedsBackend is false.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
