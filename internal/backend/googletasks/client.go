// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todoseq/internal/config"
	"todoseq/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 10 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"
)

// ErrUnsupportedFilter is returned for filter expressions other than "today".
// Google Tasks has no query language.
var ErrUnsupportedFilter = errors.New("filter not supported by the googletasks backend (only \"today\")")

// Client implements service.Service using Google Tasks API.
// Task lists play the role of projects. Google Tasks has no comments;
// the links attached to a task are reported as attachment comments.
type Client struct {
	svc *tasks.Service
	l   *zap.Logger
	now func() time.Time

	mu    sync.Mutex
	links map[string][]*tasks.TaskLinks // taskID -> links from the last Tasks call
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}

	// Token source refreshes automatically
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))

	c, err := NewWithHTTPClient(ctx, httpClient, "")
	if err != nil {
		return nil, err
	}
	c.l = cfg.Logger().Named("googletasks")
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// A non-empty endpoint overrides the API base URL.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{
		svc:   svc,
		l:     zap.NewNop(),
		now:   time.Now,
		links: make(map[string][]*tasks.TaskLinks),
	}, nil
}

// Tasks returns the open tasks of a list. An empty ProjectID means the
// default list. The "today" filter selects tasks due today in the default
// list, or in the given list.
func (c *Client) Tasks(ctx context.Context, q service.Query) ([]service.Task, error) {
	listID := q.ProjectID
	if listID == "" {
		listID = DefaultListID
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(false).
		ShowDeleted(false).
		ShowHidden(false)

	switch q.Filter {
	case "":
	case service.FilterToday:
		// Due dates are stored as midnight UTC of the due day.
		now := c.now()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		call = call.DueMin(day.Format(time.RFC3339)).DueMax(day.Add(24 * time.Hour).Format(time.RFC3339))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFilter, q.Filter)
	}

	var result []service.Task
	links := make(map[string][]*tasks.TaskLinks)
	err := call.Pages(ctx, func(resp *tasks.Tasks) error {
		for _, t := range resp.Items {
			result = append(result, toTask(listID, t))
			if len(t.Links) > 0 {
				links[t.Id] = t.Links
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	c.mu.Lock()
	c.links = links
	c.mu.Unlock()

	c.l.Debug("listed tasks", zap.String("list_id", listID), zap.Int("count", len(result)))
	return result, nil
}

// Comments returns the links of a task fetched by the last Tasks call,
// one attachment comment per link.
func (c *Client) Comments(ctx context.Context, taskID string) ([]service.Comment, error) {
	c.mu.Lock()
	links := c.links[taskID]
	c.mu.Unlock()

	var result []service.Comment
	for _, link := range links {
		name := link.Description
		if name == "" {
			name = link.Type
		}
		result = append(result, service.Comment{
			TaskID: taskID,
			Attachment: &service.Attachment{
				FileName: name,
				FileURL:  link.Link,
				FileType: link.Type,
			},
		})
	}
	return result, nil
}

// CreateTask inserts a task at the top of a list. An empty listID means the
// default list.
func (c *Client) CreateTask(ctx context.Context, listID, content string) (service.Task, error) {
	if listID == "" {
		listID = DefaultListID
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	t, err := c.svc.Tasks.Insert(listID, &tasks.Task{Title: content}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	c.l.Info("created task", zap.String("task_id", t.Id), zap.String("list_id", listID))
	return toTask(listID, t), nil
}

// CloseTask marks a task as completed.
func (c *Client) CloseTask(ctx context.Context, listID, taskID string) error {
	if listID == "" {
		listID = DefaultListID
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasks.Patch(listID, taskID, &tasks.Task{
		Status: "completed",
	}).Context(ctx).Do()
	if err != nil {
		return wrapError(err)
	}
	return nil
}

// Projects returns all task lists in API order.
func (c *Client) Projects(ctx context.Context) ([]service.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.Project
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			result = append(result, service.Project{ID: list.Id, Name: list.Title})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// Project returns a task list by ID ("@default" is accepted).
func (c *Client) Project(ctx context.Context, id string) (service.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	list, err := c.svc.Tasklists.Get(id).Context(ctx).Do()
	if err != nil {
		return service.Project{}, wrapError(err)
	}
	return service.Project{ID: list.Id, Name: list.Title}, nil
}

func toTask(listID string, t *tasks.Task) service.Task {
	task := service.Task{
		ID:          t.Id,
		ProjectID:   listID,
		Content:     t.Title,
		Description: t.Notes,
		// Google Tasks reports no creation time; the last update is the closest.
		CreatedAt: t.Updated,
		URL:       t.WebViewLink,
		ParentID:  t.Parent,
	}
	if t.Due != "" {
		task.Due = &service.Due{Date: t.Due}
	}
	return task
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: todoseq login)")
		case http.StatusNotFound:
			return fmt.Errorf("not found")
		}
	}

	return err
}
