package googletasks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoseq/internal/service"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestTasks_MapsFieldsAcrossPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/lists/L1/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("showCompleted"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, map[string]any{
				"items": []map[string]any{{
					"id": "a", "title": "Parent", "notes": "details",
					"updated": "2024-04-30T09:05:00.000Z", "webViewLink": "https://tasks.google.com/a",
					"due": "2024-05-01T00:00:00.000Z",
				}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{{
				"id": "b", "title": "Child", "parent": "a",
				"links": []map[string]any{{"type": "email", "description": "Re: report", "link": "https://mail/x"}},
			}},
		})
	})
	c := newTestClient(t, mux)

	got, err := c.Tasks(context.Background(), service.Query{ProjectID: "L1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, service.Task{
		ID:          "a",
		ProjectID:   "L1",
		Content:     "Parent",
		Description: "details",
		Due:         &service.Due{Date: "2024-05-01T00:00:00.000Z"},
		CreatedAt:   "2024-04-30T09:05:00.000Z",
		URL:         "https://tasks.google.com/a",
	}, got[0])
	assert.Equal(t, "a", got[1].ParentID)

	comments, err := c.Comments(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.NotNil(t, comments[0].Attachment)
	assert.Equal(t, "Re: report", comments[0].Attachment.FileName)
	assert.Equal(t, "https://mail/x", comments[0].Attachment.FileURL)

	comments, err = c.Comments(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestTasks_TodayFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/lists/@default/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-05-01T00:00:00Z", r.URL.Query().Get("dueMin"))
		assert.Equal(t, "2024-05-02T00:00:00Z", r.URL.Query().Get("dueMax"))
		writeJSON(t, w, map[string]any{"items": []any{}})
	})
	c := newTestClient(t, mux)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC) }

	got, err := c.Tasks(context.Background(), service.Query{Filter: service.FilterToday})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTasks_UnsupportedFilter(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	_, err := c.Tasks(context.Background(), service.Query{Filter: "#Work & p1"})
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
}

func TestCloseTask_PatchesStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/lists/L1/tasks/t1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"status":"completed"}`, string(body))
		writeJSON(t, w, map[string]any{"id": "t1", "status": "completed"})
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.CloseTask(context.Background(), "L1", "t1"))
}

func TestCreateTask_InsertsIntoList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/lists/@default/tasks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"Buy milk"}`, string(body))
		writeJSON(t, w, map[string]any{
			"id":          "n1",
			"title":       "Buy milk",
			"webViewLink": "https://tasks.google.com/task/n1",
		})
	})
	c := newTestClient(t, mux)

	task, err := c.CreateTask(context.Background(), "", "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, "n1", task.ID)
	assert.Equal(t, "@default", task.ProjectID)
	assert.Equal(t, "Buy milk", task.Content)
	assert.Equal(t, "https://tasks.google.com/task/n1", task.URL)
}

func TestProjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{
			{"id": "L1", "title": "My Tasks"},
			{"id": "L2", "title": "Work"},
		}})
	})
	mux.HandleFunc("/tasks/v1/users/@me/lists/L2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "L2", "title": "Work"})
	})
	c := newTestClient(t, mux)

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []service.Project{{ID: "L1", Name: "My Tasks"}, {ID: "L2", Name: "Work"}}, projects)

	p, err := c.Project(context.Background(), "L2")
	require.NoError(t, err)
	assert.Equal(t, "Work", p.Name)
}

func TestWrapError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/v1/users/@me/lists/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})
	mux.HandleFunc("/tasks/v1/users/@me/lists/locked", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":401,"message":"invalid credentials"}}`, http.StatusUnauthorized)
	})
	c := newTestClient(t, mux)

	_, err := c.Project(context.Background(), "gone")
	assert.EqualError(t, err, "not found")

	_, err = c.Project(context.Background(), "locked")
	assert.EqualError(t, err, "token expired or revoked (run: todoseq login)")
}
