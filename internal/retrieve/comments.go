package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"todoseq/internal/outline"
	"todoseq/internal/service"
)

// Enricher adds comment and attachment leaves to task blocks.
type Enricher struct {
	src         service.CommentSource
	concurrency int
	l           *zap.Logger
}

// NewEnricher creates an Enricher. concurrency bounds prefetching; values
// below 1 mean sequential.
func NewEnricher(src service.CommentSource, concurrency int, l *zap.Logger) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Enricher{src: src, concurrency: concurrency, l: l}
}

// Enrich fetches the comments of taskID and appends them to b.
// On failure b is left as it was and a *CommentError is returned.
func (e *Enricher) Enrich(ctx context.Context, taskID string, b *outline.Block) error {
	comments, err := e.src.Comments(ctx, taskID)
	if err != nil {
		return &CommentError{TaskID: taskID, Err: err}
	}
	b.Append(commentBlocks(comments)...)
	return nil
}

// Prefetch fetches the comments of every task id, at most e.concurrency at a
// time, and returns an Enricher that serves them from memory. Per-task
// failures are kept and returned again by Enrich; only context cancellation
// aborts the whole fetch.
func (e *Enricher) Prefetch(ctx context.Context, taskIDs []string) (*Enricher, error) {
	results := make([]commentResult, len(taskIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range taskIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			comments, err := e.src.Comments(gctx, id)
			if err != nil {
				e.l.Warn("comment fetch failed", zap.String("task_id", id), zap.Error(err))
				results[i] = commentResult{err: err}
				return nil
			}
			e.l.Debug("fetched comments", zap.String("task_id", id), zap.Int("count", len(comments)))
			results[i] = commentResult{comments: comments}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}

	src := make(prefetched, len(taskIDs))
	for i, id := range taskIDs {
		src[id] = results[i]
	}
	return &Enricher{src: src, concurrency: e.concurrency, l: e.l}, nil
}

// commentResult is the outcome of one prefetched fetch.
type commentResult struct {
	comments []service.Comment
	err      error
}

// prefetched is a CommentSource answering from prefetched results.
type prefetched map[string]commentResult

func (p prefetched) Comments(ctx context.Context, taskID string) ([]service.Comment, error) {
	r, ok := p[taskID]
	if !ok {
		return nil, fmt.Errorf("comments of task %s were not prefetched", taskID)
	}
	return r.comments, r.err
}

// commentBlocks renders comments as leaves: the text first, then the
// attachment link, keeping the order the source returned.
func commentBlocks(comments []service.Comment) []*outline.Block {
	var blocks []*outline.Block
	for _, c := range comments {
		if c.Content != "" {
			blocks = append(blocks, outline.NewLeaf(c.Content))
		}
		if c.Attachment != nil {
			link := fmt.Sprintf("[%s](%s)", c.Attachment.FileName, c.Attachment.FileURL)
			blocks = append(blocks, outline.NewLeaf(link))
		}
	}
	return blocks
}
