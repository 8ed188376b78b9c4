package outline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format for a block tree.
type Format string

const (
	// FormatOutline renders Logseq markdown ("- " bullets, tab indentation).
	FormatOutline Format = "outline"
	// FormatJSON renders the batch-insert payload as JSON.
	FormatJSON Format = "json"
	// FormatYAML renders the batch-insert payload as YAML.
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatOutline, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatOutline, nil
	default:
		return "", fmt.Errorf("invalid format: %s", s)
	}
}

// Write renders blocks to w in the given format.
func Write(w io.Writer, f Format, blocks []*Block) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nonNil(blocks))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(nonNil(blocks)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, RenderOutline(blocks, 0))
		return err
	}
}

// RenderOutline renders blocks as Logseq markdown starting at depth.
//
//	- first line
//	  continuation line
//	  todoistid:: 123
//		- child
func RenderOutline(blocks []*Block, depth int) string {
	var b strings.Builder
	for _, blk := range blocks {
		renderBlock(&b, blk, depth)
	}
	return b.String()
}

func renderBlock(b *strings.Builder, blk *Block, depth int) {
	indent := strings.Repeat("\t", depth)
	lines := strings.Split(strings.ReplaceAll(blk.Content, "\r\n", "\n"), "\n")

	b.WriteString(indent)
	b.WriteString("- ")
	b.WriteString(lines[0])
	b.WriteByte('\n')
	for _, line := range lines[1:] {
		b.WriteString(indent)
		b.WriteString("  ")
		b.WriteString(escapeBullet(line))
		b.WriteByte('\n')
	}

	keys := make([]string, 0, len(blk.Properties))
	for k := range blk.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s  %s:: %s\n", indent, k, blk.Properties[k])
	}

	for _, c := range blk.Children {
		renderBlock(b, c, depth+1)
	}
}

// escapeBullet keeps a continuation line that starts with a list marker
// from being read back as a block of its own.
func escapeBullet(line string) string {
	text := strings.TrimLeft(line, " \t")
	for _, m := range []string{"-", "*", "+"} {
		if text == m || strings.HasPrefix(text, m+" ") || strings.HasPrefix(text, m+"\t") {
			return line[:len(line)-len(text)] + `\` + text
		}
	}
	return line
}

// unescapeBullet reverses escapeBullet.
func unescapeBullet(line string) string {
	text := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(text, `\`) && escapeBullet(text[1:]) != text[1:] {
		return line[:len(line)-len(text)] + text[1:]
	}
	return line
}

func nonNil(blocks []*Block) []*Block {
	if blocks == nil {
		return []*Block{}
	}
	return blocks
}
