// Package todoist implements the service.Service interface using the Todoist REST API.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"todoseq/internal/config"
	"todoseq/internal/service"
)

const (
	// DefaultBaseURL is the Todoist REST v2 endpoint.
	DefaultBaseURL = "https://api.todoist.com/rest/v2"

	// APITimeout is the timeout for a single API call.
	APITimeout = 10 * time.Second

	projectCacheSize = 256
	projectCacheTTL  = 10 * time.Minute
)

// ErrNoToken is returned when no API token is configured.
var ErrNoToken = errors.New("api token not set (set api_token in config.yaml or TODOSEQ_API_TOKEN)")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist API error %d: %s", e.Status, e.Body)
}

// Client implements service.Service using the Todoist REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	projects   *expirable.LRU[string, service.Project]
	l          *zap.Logger
}

// New creates a client authenticated with the configured API token.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Settings.APIToken)
	if token == "" {
		return nil, ErrNoToken
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c := NewWithHTTPClient(oauth2.NewClient(ctx, ts), DefaultBaseURL, cfg.Settings.RateLimitPerMin)
	c.l = cfg.Logger().Named("todoist")
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and base URL (for testing).
// The HTTP client is expected to authenticate requests itself.
func NewWithHTTPClient(httpClient *http.Client, baseURL string, ratePerMin int) *Client {
	if ratePerMin < 1 {
		ratePerMin = 1
	}
	burst := ratePerMin / 10
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerMin)/60.0), burst),
		projects:   expirable.NewLRU[string, service.Project](projectCacheSize, nil, projectCacheTTL),
		l:          zap.NewNop(),
	}
}

// Tasks returns the active tasks of a project or matching a filter.
func (c *Client) Tasks(ctx context.Context, q service.Query) ([]service.Task, error) {
	params := url.Values{}
	if q.ProjectID != "" {
		params.Set("project_id", q.ProjectID)
	}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}

	var items []apiTask
	if err := c.do(ctx, http.MethodGet, "/tasks", params, nil, &items); err != nil {
		return nil, wrapError(err)
	}

	result := make([]service.Task, 0, len(items))
	for _, t := range items {
		result = append(result, t.toTask())
	}
	return result, nil
}

// Comments returns the comments of a task.
func (c *Client) Comments(ctx context.Context, taskID string) ([]service.Comment, error) {
	var items []apiComment
	err := c.do(ctx, http.MethodGet, "/comments", url.Values{"task_id": {taskID}}, nil, &items)
	if err != nil {
		return nil, wrapError(err)
	}

	result := make([]service.Comment, 0, len(items))
	for _, cm := range items {
		result = append(result, cm.toComment())
	}
	return result, nil
}

// CloseTask completes a task. Todoist addresses tasks globally, so projectID is unused.
func (c *Client) CloseTask(ctx context.Context, projectID, taskID string) error {
	path := "/tasks/" + url.PathEscape(taskID) + "/close"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return wrapError(err)
	}
	return nil
}

// CreateTask adds a task with the given content. An empty projectID means
// the Todoist inbox.
func (c *Client) CreateTask(ctx context.Context, projectID, content string) (service.Task, error) {
	body := apiNewTask{Content: content, ProjectID: projectID}
	var t apiTask
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, body, &t); err != nil {
		return service.Task{}, wrapError(err)
	}
	c.l.Info("created task", zap.String("task_id", t.ID), zap.String("project_id", t.ProjectID))
	return t.toTask(), nil
}

// Projects returns all projects and refreshes the project cache.
func (c *Client) Projects(ctx context.Context) ([]service.Project, error) {
	var items []apiProject
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &items); err != nil {
		return nil, wrapError(err)
	}

	result := make([]service.Project, 0, len(items))
	for _, p := range items {
		proj := service.Project{ID: p.ID, Name: p.Name}
		c.projects.Add(proj.ID, proj)
		result = append(result, proj)
	}
	return result, nil
}

// Project returns a project by ID, served from cache when possible.
func (c *Client) Project(ctx context.Context, id string) (service.Project, error) {
	if p, ok := c.projects.Get(id); ok {
		return p, nil
	}

	var p apiProject
	if err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return service.Project{}, wrapError(err)
	}
	proj := service.Project{ID: p.ID, Name: p.Name}
	c.projects.Add(proj.ID, proj)
	return proj, nil
}

// do waits for the rate limiter, sends one request and decodes the JSON
// response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		// Lets the API drop a retried create.
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.l.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or invalid (check api_token): %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limited by todoist (lower rate_limit_per_min): %w", err)
		}
	}

	return err
}

// ---- Wire types ----

type apiNewTask struct {
	Content   string `json:"content"`
	ProjectID string `json:"project_id,omitempty"`
}

type apiTask struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Content     string  `json:"content"`
	Description string  `json:"description"`
	Due         *apiDue `json:"due"`
	CreatedAt   string  `json:"created_at"`
	URL         string  `json:"url"`
	ParentID    string  `json:"parent_id"`
}

type apiDue struct {
	Date        string `json:"date"`
	Datetime    string `json:"datetime"`
	String      string `json:"string"`
	IsRecurring bool   `json:"is_recurring"`
}

type apiComment struct {
	ID         string         `json:"id"`
	TaskID     string         `json:"task_id"`
	Content    string         `json:"content"`
	PostedAt   string         `json:"posted_at"`
	Attachment *apiAttachment `json:"attachment"`
}

type apiAttachment struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

type apiProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (t apiTask) toTask() service.Task {
	task := service.Task{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Content:     t.Content,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		URL:         t.URL,
		ParentID:    t.ParentID,
	}
	if t.Due != nil {
		task.Due = &service.Due{
			Date:        t.Due.Date,
			Datetime:    t.Due.Datetime,
			String:      t.Due.String,
			IsRecurring: t.Due.IsRecurring,
		}
	}
	return task
}

func (c apiComment) toComment() service.Comment {
	cm := service.Comment{
		ID:       c.ID,
		TaskID:   c.TaskID,
		Content:  c.Content,
		PostedAt: c.PostedAt,
	}
	if c.Attachment != nil {
		cm.Attachment = &service.Attachment{
			FileName: c.Attachment.FileName,
			FileURL:  c.Attachment.FileURL,
			FileType: c.Attachment.FileType,
		}
	}
	return cm
}
