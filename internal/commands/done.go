package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	project string
}

// SetProject sets the project id (for testing).
func (c *DoneCmd) SetProject(id string) {
	c.project = id
}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"close"} }
func (c *DoneCmd) Synopsis() string   { return "Mark a task completed" }
func (c *DoneCmd) Usage() string      { return "todoseq done [--project <id>] <task-id>" }
func (c *DoneCmd) NeedsBackend() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}
	taskID := strings.TrimSpace(args[0])

	// Backends that address tasks per list need the project; fall back to
	// the configured default.
	project := c.project
	if project == "" {
		if ref, ok := cfg.Settings.DefaultProjectRef(); ok {
			project = ref.ID
		}
	}

	if err := svc.CloseTask(ctx, project, taskID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			fmt.Fprintf(errOut, "error: task not found: %s\n", taskID)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
