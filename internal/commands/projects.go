package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/output"
	"todoseq/internal/service"
)

func init() {
	Register(&ProjectsCmd{})
}

// ProjectsCmd implements the projects command.
type ProjectsCmd struct{}

func (c *ProjectsCmd) Name() string       { return "projects" }
func (c *ProjectsCmd) Aliases() []string  { return []string{"lists"} }
func (c *ProjectsCmd) Synopsis() string   { return "Print all projects" }
func (c *ProjectsCmd) Usage() string      { return "todoseq projects [common flags]" }
func (c *ProjectsCmd) NeedsBackend() bool { return true }

func (c *ProjectsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProjectsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	projects, err := svc.Projects(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if len(projects) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no projects found")
		}
		return exitcode.Success
	}

	def, hasDefault := cfg.Settings.DefaultProjectRef()
	for _, p := range projects {
		output.FormatProject(out, p, hasDefault && p.ID == def.ID)
	}
	return exitcode.Success
}
