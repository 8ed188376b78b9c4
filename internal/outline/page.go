package outline

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"todoseq/internal/fileutil"
)

// ErrAnchorNotFound is returned when no block in the page carries the anchor id.
var ErrAnchorNotFound = errors.New("anchor block not found")

// InsertOptions controls where the tree lands relative to the anchor block.
type InsertOptions struct {
	// Nested replaces the anchor content with ParentContent and inserts the
	// tree as its children. Otherwise the tree is inserted as siblings
	// following the anchor block.
	Nested bool

	// ParentContent is the content of the parent block in nested mode,
	// e.g. "[[Inbox]]".
	ParentContent string
}

// InsertResult describes what InsertIntoPage wrote.
type InsertResult struct {
	// AnchorID is the id of the anchor block, or of the parent block created
	// in nested mode when no anchor was given.
	AnchorID string
	// Depth is the outline depth of the inserted roots.
	Depth int
}

// InsertIntoPage inserts blocks into the Logseq page at path.
//
// anchor is the uuid from an "id:: <uuid>" block property. An empty anchor
// appends to the end of the page, creating the file if needed. The page is
// written once, atomically.
func InsertIntoPage(path, anchor string, blocks []*Block, opts InsertOptions) (InsertResult, error) {
	if anchor != "" {
		var err error
		if anchor, err = parseAnchor(anchor); err != nil {
			return InsertResult{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil && !(errors.Is(err, os.ErrNotExist) && anchor == "") {
		return InsertResult{}, fmt.Errorf("read page: %w", err)
	}

	page, res, err := insert(string(data), anchor, blocks, opts)
	if err != nil {
		return InsertResult{}, err
	}

	if err := fileutil.AtomicWriteFile(path, []byte(page), 0644); err != nil {
		return InsertResult{}, fmt.Errorf("write page: %w", err)
	}
	return res, nil
}

// BlockContent returns the content of the block carrying anchor: its first
// line and continuation lines, without properties or children.
func BlockContent(path, anchor string) (string, error) {
	anchor, err := parseAnchor(anchor)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	lines := splitLines(string(data))
	blk, err := findBlock(lines, anchor)
	if err != nil {
		return "", err
	}

	indent := strings.Repeat("\t", blk.depth)
	content := []string{strings.TrimPrefix(strings.TrimPrefix(lines[blk.start], indent+"-"), " ")}
	for i := blk.start + 1; i < blk.end && !isBlockStart(lines[i]); i++ {
		if isProperty(lines[i]) {
			continue
		}
		line := strings.TrimPrefix(strings.TrimPrefix(lines[i], indent), "  ")
		content = append(content, unescapeBullet(line))
	}
	return strings.TrimRight(strings.Join(content, "\n"), "\n"), nil
}

// UpdateBlock replaces the content of the block carrying anchor. Its
// properties and children are kept. The page is written atomically.
func UpdateBlock(path, anchor, content string) error {
	anchor, err := parseAnchor(anchor)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	lines := splitLines(string(data))
	blk, err := findBlock(lines, anchor)
	if err != nil {
		return err
	}
	lines, _ = replaceContent(lines, blk, content)

	if err := fileutil.AtomicWriteFile(path, []byte(joinLines(lines)), 0644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

func insert(page, anchor string, blocks []*Block, opts InsertOptions) (string, InsertResult, error) {
	lines := splitLines(page)

	if anchor == "" {
		var b strings.Builder
		b.WriteString(joinLines(lines))
		if !opts.Nested {
			b.WriteString(RenderOutline(blocks, 0))
			return b.String(), InsertResult{Depth: 0}, nil
		}
		id := uuid.New().String()
		b.WriteString("- " + opts.ParentContent + "\n")
		b.WriteString("  id:: " + id + "\n")
		b.WriteString(RenderOutline(blocks, 1))
		return b.String(), InsertResult{AnchorID: id, Depth: 1}, nil
	}

	blk, err := findBlock(lines, anchor)
	if err != nil {
		return "", InsertResult{}, err
	}

	// Trailing blank lines stay after the inserted tree.
	end := blk.end
	for end > blk.start+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	insertDepth := blk.depth
	if opts.Nested {
		var removed int
		lines, removed = replaceContent(lines, block{start: blk.start, end: end, depth: blk.depth}, opts.ParentContent)
		end -= removed
		insertDepth = blk.depth + 1
	}

	var b strings.Builder
	b.WriteString(joinLines(lines[:end]))
	b.WriteString(RenderOutline(blocks, insertDepth))
	b.WriteString(joinLines(lines[end:]))
	return b.String(), InsertResult{AnchorID: anchor, Depth: insertDepth}, nil
}

// block locates one block in a page: lines[start] is its bullet, lines[end]
// the next block at the same or a lower depth.
type block struct {
	start, end, depth int
}

func findBlock(lines []string, anchor string) (block, error) {
	propLine := -1
	for i, l := range lines {
		if strings.EqualFold(strings.TrimSpace(l), "id:: "+anchor) {
			propLine = i
			break
		}
	}
	if propLine < 0 {
		return block{}, fmt.Errorf("%w: %s", ErrAnchorNotFound, anchor)
	}

	start := -1
	for i := propLine; i >= 0; i-- {
		if isBlockStart(lines[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		// id:: among the page properties, not on a block.
		return block{}, fmt.Errorf("%w: %s", ErrAnchorNotFound, anchor)
	}
	depth := blockDepth(lines[start])

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if isBlockStart(lines[i]) && blockDepth(lines[i]) <= depth {
			end = i
			break
		}
	}
	return block{start: start, end: end, depth: depth}, nil
}

// replaceContent swaps the content lines of blk for content. Property lines
// (id:: included) and children stay. It returns the new lines and how many
// lines fewer the page has.
func replaceContent(lines []string, blk block, content string) ([]string, int) {
	indent := strings.Repeat("\t", blk.depth)
	contentLines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	kept := []string{indent + "- " + contentLines[0]}
	for _, l := range contentLines[1:] {
		kept = append(kept, indent+"  "+escapeBullet(l))
	}

	i := blk.start + 1
	for ; i < blk.end && !isBlockStart(lines[i]); i++ {
		if isProperty(lines[i]) {
			kept = append(kept, lines[i])
		}
	}

	out := make([]string, 0, len(lines)-(i-blk.start)+len(kept))
	out = append(out, lines[:blk.start]...)
	out = append(out, kept...)
	out = append(out, lines[i:]...)
	return out, len(lines) - len(out)
}

func parseAnchor(anchor string) (string, error) {
	id, err := uuid.Parse(anchor)
	if err != nil {
		return "", fmt.Errorf("invalid anchor %q: %w", anchor, err)
	}
	return id.String(), nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func isBlockStart(line string) bool {
	rest := strings.TrimLeft(line, "\t")
	return rest == "-" || strings.HasPrefix(rest, "- ")
}

var propertyLine = regexp.MustCompile(`^[A-Za-z0-9_-]+::(\s|$)`)

// isProperty reports whether a continuation line is a "key:: value" property.
func isProperty(line string) bool {
	return propertyLine.MatchString(strings.TrimSpace(line))
}

func blockDepth(line string) int {
	return len(line) - len(strings.TrimLeft(line, "\t"))
}
