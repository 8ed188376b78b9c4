package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todoseq help" }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todoseq                                            Retrieve the default project to stdout
  todoseq retrieve [common flags] [--filter <expr> | --today]
                   [--page <file> [--anchor <uuid>]] [--format outline|json|yaml]
  todoseq get ...                                    Alias for retrieve
  todoseq projects [common flags]
  todoseq done [common flags] [--project <id>] <task-id>
  todoseq send [common flags] [--project <id>] <content>
  todoseq send [common flags] [--project <id>] --page <file> --anchor <uuid>
  todoseq add ...                                    Alias for send
  todoseq login [common flags]
  todoseq logout [common flags]
  todoseq help
  todoseq version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Settings (config.yaml in the config directory, or TODOSEQ_<KEY>):
  backend                       todoist (default) or googletasks
  api_token                     Todoist API token
  default_project               "Name (id)" as printed by 'todoseq projects'
  send_default_project          Project for 'todoseq send' (backend default when unset)
  append_url                    Append a link to the task
  append_task_marker            Prefix content with task_marker (default LATER)
  append_creation_timestamp     Prefix content with "@YYYY-MM-DD **HH:MM**"
  clear_tasks_after_retrieve    Complete tasks after they were inserted
  project_name_as_parent_block  Nest the tree under [[<project name>]]
  timezone                      Time zone for timestamps (default Local)
  comment_concurrency           Parallel comment fetches (default 1)
  rate_limit_per_min            Todoist request budget (default 450)
  log.level, log.encoding       Logger level and console|json encoding
`
