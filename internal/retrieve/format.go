// Package retrieve turns a flat list of fetched tasks into a block tree,
// and optionally closes the tasks once the tree has been inserted.
package retrieve

import (
	"fmt"
	"time"

	"todoseq/internal/service"
)

// DefaultTaskMarker is the workflow keyword prepended by AppendTaskMarker.
const DefaultTaskMarker = "LATER"

// FormatOptions select the formatting steps applied to each task line.
type FormatOptions struct {
	AppendURL               bool
	AppendTaskMarker        bool
	TaskMarker              string // DefaultTaskMarker when empty
	AppendCreationTimestamp bool
	Location                *time.Location // time.Local when nil
}

// Formatter renders a task's content. It has no state besides its options
// and is safe for concurrent use.
type Formatter struct {
	opts FormatOptions
}

// NewFormatter creates a Formatter.
func NewFormatter(opts FormatOptions) *Formatter {
	if opts.TaskMarker == "" {
		opts.TaskMarker = DefaultTaskMarker
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Formatter{opts: opts}
}

// Format applies, in this order: url link, task marker, scheduled date,
// creation timestamp. Each step works on the output of the previous one.
func (f *Formatter) Format(content, url string, due *service.Due, createdAt string) string {
	out := content

	if f.opts.AppendURL {
		out = fmt.Sprintf("%s [todoist](%s)", out, url)
	}

	if f.opts.AppendTaskMarker {
		out = f.opts.TaskMarker + " " + out
	}

	if due != nil && due.Date != "" {
		if scheduled, ok := scheduledDirective(due.Date); ok {
			out = out + "\n" + scheduled
		}
	}

	if f.opts.AppendCreationTimestamp {
		if created, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			created = created.In(f.opts.Location)
			out = fmt.Sprintf("@%s **%s** %s", created.Format("2006-01-02"), created.Format("15:04"), out)
		}
	}

	return out
}

// scheduledDirective renders "SCHEDULED: <2024-05-01 Wed>" from the date part
// of a due date. Times are dropped.
func scheduledDirective(date string) (string, bool) {
	if len(date) < len("2006-01-02") {
		return "", false
	}
	d, err := time.Parse("2006-01-02", date[:10])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("SCHEDULED: <%s>", d.Format("2006-01-02 Mon")), true
}
