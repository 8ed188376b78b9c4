package todoist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoseq/internal/config"
	"todoseq/internal/service"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.Client(), srv.URL, 6000)
}

func TestTasks_ProjectQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "220", r.URL.Query().Get("project_id"))
		assert.Empty(t, r.URL.Query().Get("filter"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","project_id":"220","content":"A","description":"d","due":null,
			 "created_at":"2024-04-30T09:05:00.000000Z","url":"https://todoist.com/showTask?id=1","parent_id":null},
			{"id":"2","project_id":"220","content":"B","description":"",
			 "due":{"date":"2024-05-01","string":"tomorrow","is_recurring":false},
			 "created_at":"2024-04-30T09:06:00.000000Z","url":"u2","parent_id":"1"}
		]`))
	})

	tasks, err := c.Tasks(context.Background(), service.Query{ProjectID: "220"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, service.Task{
		ID:          "1",
		ProjectID:   "220",
		Content:     "A",
		Description: "d",
		CreatedAt:   "2024-04-30T09:05:00.000000Z",
		URL:         "https://todoist.com/showTask?id=1",
	}, tasks[0])
	assert.Equal(t, "1", tasks[1].ParentID)
	require.NotNil(t, tasks[1].Due)
	assert.Equal(t, "2024-05-01", tasks[1].Due.Date)
	assert.Equal(t, "tomorrow", tasks[1].Due.String)
}

func TestTasks_FilterQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "today", r.URL.Query().Get("filter"))
		assert.Empty(t, r.URL.Query().Get("project_id"))
		_, _ = w.Write([]byte(`[]`))
	})

	tasks, err := c.Tasks(context.Background(), service.Query{Filter: service.FilterToday})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestComments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("task_id"))
		_, _ = w.Write([]byte(`[
			{"id":"c1","task_id":"7","content":"hello","posted_at":"2024-05-01T10:00:00Z","attachment":null},
			{"id":"c2","task_id":"7","content":"","posted_at":"2024-05-01T10:01:00Z",
			 "attachment":{"file_name":"a.pdf","file_url":"https://f/a.pdf","file_type":"application/pdf"}}
		]`))
	})

	comments, err := c.Comments(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "hello", comments[0].Content)
	assert.Nil(t, comments[0].Attachment)
	require.NotNil(t, comments[1].Attachment)
	assert.Equal(t, "a.pdf", comments[1].Attachment.FileName)
	assert.Equal(t, "https://f/a.pdf", comments[1].Attachment.FileURL)
}

func TestCloseTask(t *testing.T) {
	var called atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks/42/close", r.URL.Path)
		called.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.CloseTask(context.Background(), "220", "42"))
	assert.True(t, called.Load())
}

func TestCreateTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-Id"))
		assert.NoError(t, err)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"content": "Buy milk", "project_id": "220"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"9","project_id":"220","content":"Buy milk","url":"https://todoist.com/showTask?id=9"}`))
	})

	task, err := c.CreateTask(context.Background(), "220", "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, "9", task.ID)
	assert.Equal(t, "https://todoist.com/showTask?id=9", task.URL)
}

func TestCreateTask_InboxOmitsProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "project_id")
		_, _ = w.Write([]byte(`{"id":"10","content":"x"}`))
	})

	_, err := c.CreateTask(context.Background(), "", "x")
	require.NoError(t, err)
}

func TestProject_Cached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/projects/220", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"220","name":"Inbox"}`))
	})

	for i := 0; i < 3; i++ {
		p, err := c.Project(context.Background(), "220")
		require.NoError(t, err)
		assert.Equal(t, "Inbox", p.Name)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestProjects_FillCache(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/projects", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"1","name":"Inbox"},{"id":"2","name":"Work"}]`))
	})

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []service.Project{{ID: "1", Name: "Inbox"}, {ID: "2", Name: "Work"}}, projects)

	p, err := c.Project(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Work", p.Name)
	assert.Equal(t, int32(1), hits.Load())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: "token expired or invalid"},
		{name: "forbidden", status: http.StatusForbidden, want: "token expired or invalid"},
		{name: "not found", status: http.StatusNotFound, want: "not found"},
		{name: "rate limited", status: http.StatusTooManyRequests, want: "rate limited"},
		{name: "server error", status: http.StatusInternalServerError, want: "todoist API error 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := c.Tasks(context.Background(), service.Query{ProjectID: "1"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ErrNoToken)

	c, err := New(context.Background(), &config.Config{Settings: config.Settings{APIToken: "secret", RateLimitPerMin: 60}})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNew_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), &config.Config{Settings: config.Settings{APIToken: "secret", RateLimitPerMin: 600}})
	require.NoError(t, err)
	c.baseURL = srv.URL

	_, err = c.Projects(context.Background())
	require.NoError(t, err)
}
