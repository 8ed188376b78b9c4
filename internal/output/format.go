// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todoseq/internal/config"
	"todoseq/internal/service"
)

// FormatProject formats a project line for the projects command.
// Format: "{NAME} ({ID})", the value accepted by default_project,
// followed by " [default]" for the configured default project.
func FormatProject(w io.Writer, p service.Project, isDefault bool) {
	line := config.ProjectRef{ID: p.ID, Name: normalizeName(p.Name)}.String()
	if isDefault {
		line += " [default]"
	}
	fmt.Fprintln(w, line)
}

// normalizeName normalizes a project name for display.
// - Empty or whitespace-only names become "(untitled)"
// - Newlines are replaced with spaces
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")

	if strings.TrimSpace(name) == "" {
		return "(untitled)"
	}
	return name
}
