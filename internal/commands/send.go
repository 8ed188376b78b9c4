package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/outline"
	"todoseq/internal/service"
)

func init() {
	Register(&SendCmd{})
}

// workflowMarkers are the Logseq keywords stripped from content before it is
// sent.
var workflowMarkers = []string{"TODO", "DOING", "NOW", "LATER", "DONE"}

// SendCmd implements the send command: it creates a backend task from a
// block and marks the block as sent.
type SendCmd struct {
	project string
	page    string
	anchor  string
}

// SetProject sets the target project (for testing).
func (c *SendCmd) SetProject(project string) {
	c.project = project
}

// SetPage sets the page and anchor of the block to send (for testing).
func (c *SendCmd) SetPage(page, anchor string) {
	c.page = page
	c.anchor = anchor
}

func (c *SendCmd) Name() string       { return "send" }
func (c *SendCmd) Aliases() []string  { return []string{"add"} }
func (c *SendCmd) Synopsis() string   { return "Create a task from a block" }
func (c *SendCmd) Usage() string      { return "todoseq send [--project <id>] (<content> | --page <file> --anchor <uuid>)" }
func (c *SendCmd) NeedsBackend() bool { return true }

func (c *SendCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.page, "page", "", "")
	fs.StringVar(&c.page, "p", "", "")
	fs.StringVar(&c.anchor, "anchor", "", "")
}

func (c *SendCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if (c.page == "") != (c.anchor == "") {
		fmt.Fprintln(errOut, "error: --page and --anchor must be used together")
		return exitcode.UserError
	}

	var block string
	if c.page != "" {
		if len(args) > 0 {
			fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
			return exitcode.UserError
		}
		content, err := outline.BlockContent(c.page, c.anchor)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		block = content
	} else {
		block = strings.Join(args, " ")
	}

	marker, content := splitMarker(block)
	if content == "" {
		fmt.Fprintln(errOut, "error: cannot send empty task")
		return exitcode.UserError
	}

	task, err := svc.CreateTask(ctx, c.targetProject(cfg), content)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	sent := content
	if marker != "" {
		sent = "DONE " + sent
	}
	if task.URL != "" {
		sent += fmt.Sprintf(" [todoist](%s)", task.URL)
	}

	if c.page != "" {
		if err := outline.UpdateBlock(c.page, c.anchor, sent); err != nil {
			fmt.Fprintf(errOut, "error: task %s created but block not updated: %v\n", task.ID, err)
			return exitcode.Degraded
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "ok: sent task %s\n", task.ID)
		}
		return exitcode.Success
	}

	fmt.Fprintln(out, sent)
	return exitcode.Success
}

// targetProject picks --project, then send_default_project. An empty result
// leaves the choice to the backend.
func (c *SendCmd) targetProject(cfg *config.Config) string {
	if ref, ok := config.ParseProjectRef(c.project); ok {
		return ref.ID
	}
	if ref, ok := config.ParseProjectRef(cfg.Settings.SendDefaultProject); ok {
		return ref.ID
	}
	return ""
}

// splitMarker separates a leading workflow marker from the content.
func splitMarker(s string) (marker, content string) {
	s = strings.TrimSpace(s)
	for _, m := range workflowMarkers {
		if s == m {
			return m, ""
		}
		if strings.HasPrefix(s, m+" ") {
			return m, strings.TrimSpace(s[len(m)+1:])
		}
	}
	return "", s
}
