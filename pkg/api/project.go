package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"tricys-client/internal/dto"
)

// ProjectAPI covers /project and every per-project facet (parameters, run
// config, UI state, component assets).
type ProjectAPI struct {
	client *Client
}

func NewProjectAPI(client *Client) *ProjectAPI {
	return &ProjectAPI{client: client}
}

func (a *ProjectAPI) ListProjects(ctx context.Context, skip, limit int) ([]dto.ProjectSummary, error) {
	var out []dto.ProjectSummary
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/project/", Query: page(skip, limit)}, &out)
	return out, err
}

func (a *ProjectAPI) ListPublicProjects(ctx context.Context, skip, limit int) ([]dto.ProjectSummary, error) {
	var out []dto.ProjectSummary
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/project/public", Query: page(skip, limit)}, &out)
	return out, err
}

// CreateProject uploads a model file and returns the created project.
func (a *ProjectAPI) CreateProject(ctx context.Context, file FileUpload) (*dto.Project, error) {
	var out dto.Project
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/project/upload", File: &file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProjectAPI) GetProject(ctx context.Context, projectID string) (*dto.Project, error) {
	var out dto.Project
	if err := a.client.Do(ctx, a.req(http.MethodGet, "", projectID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProjectAPI) DeleteProject(ctx context.Context, projectID string) error {
	return a.client.Do(ctx, a.req(http.MethodDelete, "", projectID), nil)
}

// --- Parameters ---

func (a *ProjectAPI) GetParameters(ctx context.Context, projectID string) ([]dto.Parameter, error) {
	var out []dto.Parameter
	err := a.client.Do(ctx, a.req(http.MethodGet, "/parameters", projectID), &out)
	return out, err
}

func (a *ProjectAPI) GetDefaults(ctx context.Context, projectID string) ([]dto.Parameter, error) {
	var out []dto.Parameter
	err := a.client.Do(ctx, a.req(http.MethodGet, "/defaults", projectID), &out)
	return out, err
}

// SaveParameters overwrites the whole parameter collection.
func (a *ProjectAPI) SaveParameters(ctx context.Context, projectID string, params []dto.Parameter) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/parameters", projectID, params), nil)
}

// --- Run configuration ---

func (a *ProjectAPI) GetRunConfig(ctx context.Context, projectID string) (dto.RunConfig, error) {
	var out dto.RunConfig
	err := a.client.Do(ctx, a.req(http.MethodGet, "/run_config", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveRunConfig(ctx context.Context, projectID string, cfg dto.RunConfig) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/run_config", projectID, cfg), nil)
}

// --- UI state ---

func (a *ProjectAPI) GetGroups(ctx context.Context, projectID string) (map[string]dto.Group, error) {
	var out map[string]dto.Group
	err := a.client.Do(ctx, a.req(http.MethodGet, "/groups", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveGroups(ctx context.Context, projectID string, groups map[string]dto.Group) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/groups", projectID, groups), nil)
}

func (a *ProjectAPI) SavePosition(ctx context.Context, projectID string, update dto.PositionUpdate) error {
	if err := dto.Validate(&update); err != nil {
		return err
	}
	return a.client.Do(ctx, a.body(http.MethodPost, "/update_position", projectID, update), nil)
}

func (a *ProjectAPI) SaveComponentVisuals(ctx context.Context, projectID string, update dto.Document) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/component_visuals", projectID, update), nil)
}

func (a *ProjectAPI) GetVisualConfig(ctx context.Context, projectID string) (dto.VisualConfig, error) {
	var out dto.VisualConfig
	err := a.client.Do(ctx, a.req(http.MethodGet, "/visual_config", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveVisualConfig(ctx context.Context, projectID string, cfg dto.VisualConfig) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/visual_config", projectID, cfg), nil)
}

// GetSidebarConfig returns the raw sidebar document (hidden component ids);
// the client does not interpret it.
func (a *ProjectAPI) GetSidebarConfig(ctx context.Context, projectID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := a.client.Do(ctx, a.req(http.MethodGet, "/sidebar_config", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveSidebarConfig(ctx context.Context, projectID string, cfg json.RawMessage) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/sidebar_config", projectID, cfg), nil)
}

func (a *ProjectAPI) GetAnnotations(ctx context.Context, projectID string) (dto.Annotations, error) {
	var out dto.Annotations
	err := a.client.Do(ctx, a.req(http.MethodGet, "/annotations", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveAnnotations(ctx context.Context, projectID string, notes dto.Annotations) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/annotations", projectID, notes), nil)
}

func (a *ProjectAPI) GetAlerts(ctx context.Context, projectID string) (map[string]dto.AlertRule, error) {
	var out map[string]dto.AlertRule
	err := a.client.Do(ctx, a.req(http.MethodGet, "/alerts", projectID), &out)
	return out, err
}

func (a *ProjectAPI) SaveAlerts(ctx context.Context, projectID string, rules map[string]dto.AlertRule) error {
	return a.client.Do(ctx, a.body(http.MethodPost, "/alerts", projectID, rules), nil)
}

// --- Component assets ---

func (a *ProjectAPI) GetComponentSource(ctx context.Context, projectID, componentID string) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, a.component(http.MethodGet, "/source", projectID, componentID), &out)
	return out, err
}

func (a *ProjectAPI) GetLayout(ctx context.Context, projectID, componentID string) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, a.component(http.MethodGet, "/layout", projectID, componentID), &out)
	return out, err
}

func (a *ProjectAPI) SaveLayout(ctx context.Context, projectID, componentID string, layout dto.Document) error {
	req := a.component(http.MethodPost, "/layout", projectID, componentID)
	req.JSON = layout
	return a.client.Do(ctx, req, nil)
}

func (a *ProjectAPI) UploadMedia(ctx context.Context, projectID string, file FileUpload) (dto.Document, error) {
	req := a.req(http.MethodPost, "/media", projectID)
	req.File = &file
	var out dto.Document
	err := a.client.Do(ctx, req, &out)
	return out, err
}

func (a *ProjectAPI) UploadComponentModel(ctx context.Context, projectID, componentID string, file FileUpload) (dto.Document, error) {
	req := a.component(http.MethodPost, "/model", projectID, componentID)
	req.File = &file
	var out dto.Document
	err := a.client.Do(ctx, req, &out)
	return out, err
}

// --- Lifecycle ---

// ExportProject downloads the project archive.
func (a *ProjectAPI) ExportProject(ctx context.Context, projectID string) (*Blob, error) {
	return a.client.DoBlob(ctx, Request{
		Method: http.MethodGet,
		Route:  "/project/export",
		Query:  url.Values{"project_id": {projectID}},
	})
}

func (a *ProjectAPI) ImportProject(ctx context.Context, file FileUpload) (*dto.Project, error) {
	var out dto.Project
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/project/import", File: &file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProjectAPI) CreateDemo(ctx context.Context) (*dto.Project, error) {
	var out dto.Project
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/project/demo"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProjectAPI) ForkProject(ctx context.Context, projectID string) (*dto.Project, error) {
	var out dto.Project
	if err := a.client.Do(ctx, a.req(http.MethodPost, "/fork", projectID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *ProjectAPI) req(method, suffix, projectID string) Request {
	return Request{Method: method, Route: "/project/{id}" + suffix, Params: []string{projectID}}
}

func (a *ProjectAPI) body(method, suffix, projectID string, payload interface{}) Request {
	r := a.req(method, suffix, projectID)
	r.JSON = payload
	return r
}

func (a *ProjectAPI) component(method, suffix, projectID, componentID string) Request {
	return Request{
		Method: method,
		Route:  "/project/{id}/components/{cid}" + suffix,
		Params: []string{projectID, componentID},
	}
}
