package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tricys-client/internal/dto"
)

// TaskAPI drives simulation runs and their results.
type TaskAPI struct {
	client *Client
}

func NewTaskAPI(client *Client) *TaskAPI {
	return &TaskAPI{client: client}
}

func (a *TaskAPI) CreateTask(ctx context.Context, req dto.CreateTaskRequest) (*dto.Task, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	var out dto.Task
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/tasks", JSON: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks filters by status when non-empty. limit defaults to 20.
func (a *TaskAPI) ListTasks(ctx context.Context, status string, limit, offset int) ([]dto.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	if status != "" {
		q.Set("status", status)
	}
	var out []dto.Task
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/tasks", Query: q}, &out)
	return out, err
}

func (a *TaskAPI) GetTask(ctx context.Context, taskID string) (*dto.Task, error) {
	var out dto.Task
	if err := a.client.Do(ctx, a.req(http.MethodGet, "", taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *TaskAPI) StopTask(ctx context.Context, taskID string) error {
	return a.client.Do(ctx, a.req(http.MethodPost, "/stop", taskID), nil)
}

// DeleteTask removes the task; cleanup also deletes its result files.
func (a *TaskAPI) DeleteTask(ctx context.Context, taskID string, cleanup bool) error {
	req := a.req(http.MethodDelete, "", taskID)
	req.Query = url.Values{"cleanup_files": {strconv.FormatBool(cleanup)}}
	return a.client.Do(ctx, req, nil)
}

func (a *TaskAPI) GetLogs(ctx context.Context, taskID string) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, a.req(http.MethodGet, "/logs", taskID), &out)
	return out, err
}

func (a *TaskAPI) GetSummary(ctx context.Context) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/tasks/stats/summary"}, &out)
	return out, err
}

func (a *TaskAPI) GetResultSummary(ctx context.Context, taskID string) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, a.req(http.MethodGet, "/result_summary", taskID), &out)
	return out, err
}

func (a *TaskAPI) GetFiles(ctx context.Context, taskID string) ([]dto.TaskFile, error) {
	var out []dto.TaskFile
	err := a.client.Do(ctx, a.req(http.MethodGet, "/files", taskID), &out)
	return out, err
}

func (a *TaskAPI) DownloadFile(ctx context.Context, taskID, path string) (*Blob, error) {
	req := a.req(http.MethodGet, "/files/download", taskID)
	req.Query = url.Values{"path": {path}}
	return a.client.DoBlob(ctx, req)
}

func (a *TaskAPI) QueryResults(ctx context.Context, taskID string, query dto.Document) (dto.Document, error) {
	req := a.req(http.MethodPost, "/results/query", taskID)
	req.JSON = query
	var out dto.Document
	err := a.client.Do(ctx, req, &out)
	return out, err
}

func (a *TaskAPI) req(method, suffix, taskID string) Request {
	return Request{Method: method, Route: "/tasks/{id}" + suffix, Params: []string{taskID}}
}
