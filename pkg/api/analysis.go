package api

import (
	"context"
	"net/http"
	"net/url"

	"tricys-client/internal/dto"
)

type AnalysisAPI struct {
	client *Client
}

func NewAnalysisAPI(client *Client) *AnalysisAPI {
	return &AnalysisAPI{client: client}
}

// GetTasks lists analysis tasks, scoped to one project when projectID is set.
func (a *AnalysisAPI) GetTasks(ctx context.Context, projectID string) ([]dto.AnalysisTask, error) {
	req := Request{Method: http.MethodGet, Route: "/analysis/tasks"}
	if projectID != "" {
		req.Query = url.Values{"project_id": {projectID}}
	}
	var out []dto.AnalysisTask
	err := a.client.Do(ctx, req, &out)
	return out, err
}

func (a *AnalysisAPI) GetTemplates(ctx context.Context) ([]dto.Document, error) {
	var out []dto.Document
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/analysis/templates"}, &out)
	return out, err
}

// SubmitTask posts a new analysis job. templateID may be nil.
func (a *AnalysisAPI) SubmitTask(ctx context.Context, projectID, name string, config map[string]interface{}, templateID *string) (*dto.AnalysisTask, error) {
	payload := dto.SubmitAnalysisRequest{
		ProjectID:  dto.ID(projectID),
		Name:       name,
		Config:     config,
		TemplateID: templateID,
	}
	if err := dto.Validate(&payload); err != nil {
		return nil, err
	}
	var out dto.AnalysisTask
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/analysis/submit", JSON: payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AnalysisAPI) GetTask(ctx context.Context, taskID string) (*dto.AnalysisTask, error) {
	var out dto.AnalysisTask
	if err := a.client.Do(ctx, a.req(http.MethodGet, "", taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AnalysisAPI) DeleteTask(ctx context.Context, taskID string) error {
	return a.client.Do(ctx, a.req(http.MethodDelete, "", taskID), nil)
}

// GetReport returns the markdown report body.
func (a *AnalysisAPI) GetReport(ctx context.Context, taskID string) (string, error) {
	var out dto.ReportResponse
	if err := a.client.Do(ctx, a.req(http.MethodGet, "/report", taskID), &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (a *AnalysisAPI) GetTaskLogs(ctx context.Context, taskID string) (string, error) {
	var out dto.LogsResponse
	if err := a.client.Do(ctx, a.req(http.MethodGet, "/logs", taskID), &out); err != nil {
		return "", err
	}
	return out.Logs, nil
}

func (a *AnalysisAPI) req(method, suffix, taskID string) Request {
	return Request{Method: method, Route: "/analysis/tasks/{id}" + suffix, Params: []string{taskID}}
}
