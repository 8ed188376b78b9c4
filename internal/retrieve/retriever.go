package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"todoseq/internal/config"
	"todoseq/internal/outline"
	"todoseq/internal/service"
)

// Inserter hands a finished tree to the host document. parent is "" for
// sibling insertion, otherwise the content of the block the tree is nested
// under (e.g. "[[Inbox]]").
type Inserter interface {
	Insert(ctx context.Context, blocks []*outline.Block, parent string) error
}

// Options is the explicit configuration of one retrieve run.
type Options struct {
	Format             FormatOptions
	CommentConcurrency int

	// DefaultProject is the raw default_project setting ("Name (id)" or an id).
	DefaultProject           string
	ClearTasksAfterRetrieve  bool
	ProjectNameAsParentBlock bool
}

// OptionsFromSettings maps user settings to run options.
func OptionsFromSettings(s config.Settings) (Options, error) {
	loc, err := s.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Format: FormatOptions{
			AppendURL:               s.AppendURL,
			AppendTaskMarker:        s.AppendTaskMarker,
			TaskMarker:              s.TaskMarker,
			AppendCreationTimestamp: s.AppendCreationTimestamp,
			Location:                loc,
		},
		CommentConcurrency:       s.CommentConcurrency,
		DefaultProject:           s.DefaultProject,
		ClearTasksAfterRetrieve:  s.ClearTasksAfterRetrieve,
		ProjectNameAsParentBlock: s.ProjectNameAsParentBlock,
	}, nil
}

// Result summarizes a run.
type Result struct {
	Fetched  int
	Roots    []*outline.Block
	Problems []error
	Archived int
}

// Retriever sequences fetch, build, insert and the optional archival pass.
type Retriever struct {
	svc      service.Service
	opts     Options
	builder  *Builder
	archiver *Archiver
	l        *zap.Logger
}

// New creates a Retriever.
func New(svc service.Service, opts Options, l *zap.Logger) *Retriever {
	if l == nil {
		l = zap.NewNop()
	}
	return &Retriever{
		svc:      svc,
		opts:     opts,
		builder:  NewBuilder(NewFormatter(opts.Format), NewEnricher(svc, opts.CommentConcurrency, l), l),
		archiver: NewArchiver(svc, l),
		l:        l,
	}
}

// Run retrieves the tasks matching filter ("" for the default project),
// builds their tree and inserts it.
//
// ErrNoDefaultProject, *FetchError and ErrNoTasks are returned before the
// inserter is called; an *InsertError means nothing was archived. An *ArchivalError is returned together with a Result,
// since the insertion already happened.
func (r *Retriever) Run(ctx context.Context, filter string, ins Inserter) (Result, error) {
	ref, hasDefault := config.ParseProjectRef(r.opts.DefaultProject)

	var q service.Query
	if filter == "" {
		if !hasDefault {
			return Result{}, ErrNoDefaultProject
		}
		q.ProjectID = ref.ID
	} else {
		q.Filter = filter
	}

	r.l.Info("loading tasks", zap.String("project_id", q.ProjectID), zap.String("filter", q.Filter))
	tasks, err := r.svc.Tasks(ctx, q)
	if err != nil {
		return Result{}, &FetchError{Op: "retrieve tasks", Err: err}
	}
	if len(tasks) == 0 {
		return Result{}, ErrNoTasks
	}
	r.l.Info("fetched tasks", zap.Int("count", len(tasks)))

	tree, err := r.builder.Build(ctx, tasks)
	if err != nil {
		return Result{}, err
	}
	for _, p := range tree.Problems {
		r.l.Warn("degraded tree", zap.Error(p))
	}

	var parent string
	if r.opts.ProjectNameAsParentBlock {
		name, err := r.parentName(ctx, ref, hasDefault, filter)
		if err != nil {
			return Result{}, err
		}
		parent = fmt.Sprintf("[[%s]]", name)
	}

	if err := ins.Insert(ctx, tree.Roots, parent); err != nil {
		return Result{}, &InsertError{Err: err}
	}

	res := Result{
		Fetched:  len(tasks),
		Roots:    tree.Roots,
		Problems: tree.Problems,
	}

	if r.opts.ClearTasksAfterRetrieve {
		res.Archived, err = r.archiver.Archive(ctx, tasks)
		if err != nil {
			return res, err
		}
		r.l.Info("archived tasks", zap.Int("count", res.Archived))
	}
	return res, nil
}

// parentName is the name of the block the tree is nested under: the default
// project's name, looked up when only its id is configured. Filter runs
// without a default project use the filter text.
func (r *Retriever) parentName(ctx context.Context, ref config.ProjectRef, hasDefault bool, filter string) (string, error) {
	if !hasDefault {
		return filter, nil
	}
	if ref.Name != "" {
		return ref.Name, nil
	}
	p, err := r.svc.Project(ctx, ref.ID)
	if err != nil {
		return "", &FetchError{Op: "retrieve project", Err: err}
	}
	return p.Name, nil
}
