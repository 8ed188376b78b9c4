package retrieve

import (
	"context"

	"go.uber.org/zap"

	"todoseq/internal/outline"
	"todoseq/internal/service"
)

// Tree is the result of Build. Problems holds the recoverable conditions
// (*CommentError, *StructuralError) met while building; the roots cover
// every task that was not affected.
type Tree struct {
	Roots    []*outline.Block
	Problems []error
}

// Builder reconstructs the task hierarchy from parent references.
type Builder struct {
	format *Formatter
	enrich *Enricher
	l      *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(f *Formatter, e *Enricher, l *zap.Logger) *Builder {
	if l == nil {
		l = zap.NewNop()
	}
	return &Builder{format: f, enrich: e, l: l}
}

// index is the id lookup and parent→children adjacency of one task list.
type index struct {
	tasks      []*service.Task // unique ids, input order
	byID       map[string]*service.Task
	childrenOf map[string][]*service.Task
	roots      []*service.Task
}

// Build returns the block tree for tasks. Roots and siblings keep the input
// order. The error is non-nil only when ctx is cancelled.
func (b *Builder) Build(ctx context.Context, tasks []service.Task) (Tree, error) {
	var tree Tree

	idx, dups := buildIndex(tasks)
	if len(dups) > 0 {
		tree.Problems = append(tree.Problems, &StructuralError{TaskIDs: dups, Reason: "duplicate task id"})
	}

	reached := idx.reachable()
	ids := make([]string, 0, len(reached))
	for _, t := range idx.tasks {
		if reached[t.ID] {
			ids = append(ids, t.ID)
		}
	}

	enrich, err := b.enrich.Prefetch(ctx, ids)
	if err != nil {
		return Tree{}, err
	}

	path := make(map[string]bool)
	var visit func(t *service.Task) *outline.Block
	visit = func(t *service.Task) *outline.Block {
		if path[t.ID] {
			tree.Problems = append(tree.Problems, &StructuralError{TaskIDs: []string{t.ID}, Reason: "task is its own ancestor"})
			return nil
		}
		path[t.ID] = true
		defer delete(path, t.ID)

		node := b.newNode(ctx, enrich, t, &tree)
		for _, child := range idx.childrenOf[t.ID] {
			if c := visit(child); c != nil {
				node.Append(c)
			}
		}
		return node
	}

	for _, t := range idx.roots {
		if node := visit(t); node != nil {
			tree.Roots = append(tree.Roots, node)
		}
	}

	for _, group := range idx.unreachedGroups(reached) {
		tree.Problems = append(tree.Problems, &StructuralError{TaskIDs: group, Reason: "parent cycle"})
	}

	b.l.Debug("built task tree",
		zap.Int("tasks", len(tasks)),
		zap.Int("roots", len(tree.Roots)),
		zap.Int("problems", len(tree.Problems)))
	return tree, nil
}

// newNode builds one task block: formatted content, then the description
// leaf, then comment leaves. A failed comment fetch only drops the comments.
func (b *Builder) newNode(ctx context.Context, enrich *Enricher, t *service.Task, tree *Tree) *outline.Block {
	node := outline.NewTaskBlock(b.format.Format(t.Content, t.URL, t.Due, t.CreatedAt), t.ID)
	if t.Description != "" {
		node.Append(outline.NewLeaf(t.Description))
	}
	if err := enrich.Enrich(ctx, t.ID, node); err != nil {
		tree.Problems = append(tree.Problems, err)
	}
	return node
}

// buildIndex indexes tasks by id in one pass. Later duplicates of an id are
// dropped and returned.
func buildIndex(tasks []service.Task) (*index, []string) {
	idx := &index{
		byID:       make(map[string]*service.Task, len(tasks)),
		childrenOf: make(map[string][]*service.Task),
	}
	var dups []string
	for i := range tasks {
		t := &tasks[i]
		if _, exists := idx.byID[t.ID]; exists {
			dups = append(dups, t.ID)
			continue
		}
		idx.byID[t.ID] = t
		idx.tasks = append(idx.tasks, t)
	}

	for _, t := range idx.tasks {
		if _, ok := idx.byID[t.ParentID]; t.HasParent() && ok {
			idx.childrenOf[t.ParentID] = append(idx.childrenOf[t.ParentID], t)
			continue
		}
		// No parent, or a parent outside the fetched set.
		idx.roots = append(idx.roots, t)
	}
	return idx, dups
}

// reachable returns the ids reachable from the roots.
func (idx *index) reachable() map[string]bool {
	seen := make(map[string]bool, len(idx.tasks))
	stack := append([]*service.Task(nil), idx.roots...)
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		stack = append(stack, idx.childrenOf[t.ID]...)
	}
	return seen
}

// unreachedGroups groups the tasks not reached from any root. Every such
// task sits on, or below, a parent cycle; each group is one cycle with the
// tasks hanging off it, ids in input order.
func (idx *index) unreachedGroups(reached map[string]bool) [][]string {
	group := make(map[string]int)
	var groups [][]string

	for _, t := range idx.tasks {
		if reached[t.ID] {
			continue
		}
		if _, done := group[t.ID]; done {
			continue
		}

		// Follow parents until a task with a group, or one seen on this walk.
		onWalk := make(map[string]bool)
		var walk []string
		g := -1
		for cur := t; ; cur = idx.byID[cur.ParentID] {
			if existing, ok := group[cur.ID]; ok {
				g = existing
				break
			}
			if onWalk[cur.ID] {
				break
			}
			onWalk[cur.ID] = true
			walk = append(walk, cur.ID)
		}
		if g < 0 {
			g = len(groups)
			groups = append(groups, nil)
		}
		for _, id := range walk {
			group[id] = g
		}
	}

	for _, t := range idx.tasks {
		if g, ok := group[t.ID]; ok {
			groups[g] = append(groups[g], t.ID)
		}
	}
	return groups
}
