package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todoseq/internal/config"
	"todoseq/internal/exitcode"
	"todoseq/internal/outline"
	"todoseq/internal/retrieve"
	"todoseq/internal/service"
)

func init() {
	RegisterDefault(&RetrieveCmd{})
}

// RetrieveCmd implements the retrieve command.
type RetrieveCmd struct {
	filter string
	today  bool
	page   string
	anchor string
	format string
}

// SetFilter sets the filter expression (for testing).
func (c *RetrieveCmd) SetFilter(filter string) { c.filter = filter }

// SetToday selects the tasks due today (for testing).
func (c *RetrieveCmd) SetToday(today bool) { c.today = today }

// SetPage sets the target page and anchor (for testing).
func (c *RetrieveCmd) SetPage(page, anchor string) {
	c.page = page
	c.anchor = anchor
}

// SetFormat sets the stdout format (for testing).
func (c *RetrieveCmd) SetFormat(format string) { c.format = format }

func (c *RetrieveCmd) Name() string      { return "retrieve" }
func (c *RetrieveCmd) Aliases() []string { return []string{"get"} }
func (c *RetrieveCmd) Synopsis() string  { return "Retrieve tasks as a block tree" }
func (c *RetrieveCmd) Usage() string {
	return "todoseq retrieve [--filter <expr> | --today] [--page <file> [--anchor <uuid>]] [--format outline|json|yaml]"
}
func (c *RetrieveCmd) NeedsBackend() bool { return true }

func (c *RetrieveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.filter, "f", "", "")
	fs.BoolVar(&c.today, "today", false, "")
	fs.StringVar(&c.page, "page", "", "")
	fs.StringVar(&c.page, "p", "", "")
	fs.StringVar(&c.anchor, "anchor", "", "")
	fs.StringVar(&c.format, "format", "", "")
}

func (c *RetrieveCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.today && c.filter != "" {
		fmt.Fprintln(errOut, "error: cannot use both --today and --filter")
		return exitcode.UserError
	}
	if c.anchor != "" && c.page == "" {
		fmt.Fprintln(errOut, "error: --anchor requires --page")
		return exitcode.UserError
	}
	format, err := outline.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.page != "" && format != outline.FormatOutline {
		fmt.Fprintln(errOut, "error: --format cannot be used with --page")
		return exitcode.UserError
	}

	filter := c.filter
	if c.today {
		filter = service.FilterToday
	}

	opts, err := retrieve.OptionsFromSettings(cfg.Settings)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	var (
		ins  retrieve.Inserter = &streamInserter{w: out, format: format}
		page *pageInserter
	)
	if c.page != "" {
		page = &pageInserter{path: c.page, anchor: c.anchor}
		ins = page
	}

	res, err := retrieve.New(svc, opts, cfg.Logger()).Run(ctx, filter, ins)
	if code, done := c.reportError(cfg, err, res, out, errOut); done {
		return code
	}

	for _, p := range res.Problems {
		fmt.Fprintf(errOut, "warning: %v\n", p)
	}

	if c.page != "" && !cfg.Quiet {
		fmt.Fprintf(out, "ok: %d tasks inserted into %s\n", res.Fetched, c.page)
		if id := page.createdParent(); id != "" {
			fmt.Fprintf(out, "ok: created parent block %s (reuse with --anchor)\n", id)
		}
		if opts.ClearTasksAfterRetrieve {
			fmt.Fprintf(out, "ok: %d tasks completed\n", res.Archived)
		}
	}

	if len(res.Problems) > 0 {
		return exitcode.Degraded
	}
	return exitcode.Success
}

// reportError prints err and returns its exit code. done is false when the
// run succeeded.
func (c *RetrieveCmd) reportError(cfg *config.Config, err error, res retrieve.Result, out, errOut io.Writer) (code int, done bool) {
	if err == nil {
		return exitcode.Success, false
	}

	var (
		fetchErr   *retrieve.FetchError
		insertErr  *retrieve.InsertError
		archiveErr *retrieve.ArchivalError
	)
	switch {
	case errors.Is(err, retrieve.ErrNoTasks):
		if !cfg.Quiet {
			fmt.Fprintln(errOut, "there are no tasks")
		}
		return exitcode.Success, true
	case errors.Is(err, retrieve.ErrNoDefaultProject):
		fmt.Fprintln(errOut, "error: please select a default project (set default_project, see: todoseq projects)")
		return exitcode.AuthError, true
	case errors.As(err, &fetchErr):
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError, true
	case errors.As(err, &insertErr):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError, true
	case errors.As(err, &archiveErr):
		for _, p := range res.Problems {
			fmt.Fprintf(errOut, "warning: %v\n", p)
		}
		if c.page != "" && !cfg.Quiet {
			fmt.Fprintf(out, "ok: %d tasks inserted into %s\n", res.Fetched, c.page)
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError, true
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError, true
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError, true
	}
}

// streamInserter writes the tree to stdout. A parent becomes a top-level
// block holding the tree.
type streamInserter struct {
	w      io.Writer
	format outline.Format
}

func (s *streamInserter) Insert(ctx context.Context, blocks []*outline.Block, parent string) error {
	if parent != "" {
		p := outline.NewLeaf(parent)
		p.Append(blocks...)
		blocks = []*outline.Block{p}
	}
	return outline.Write(s.w, s.format, blocks)
}

// pageInserter writes the tree into a Logseq page file.
type pageInserter struct {
	path   string
	anchor string
	result outline.InsertResult
}

func (p *pageInserter) Insert(ctx context.Context, blocks []*outline.Block, parent string) error {
	res, err := outline.InsertIntoPage(p.path, p.anchor, blocks, outline.InsertOptions{
		Nested:        parent != "",
		ParentContent: parent,
	})
	if err != nil {
		return err
	}
	p.result = res
	return nil
}

// createdParent is the id of the parent block appended in nested mode when
// no anchor was given, or "".
func (p *pageInserter) createdParent() string {
	if p == nil || p.anchor != "" {
		return ""
	}
	return p.result.AnchorID
}
