package dto

// --- Simulation tasks ---

type CreateTaskRequest struct {
	ProjectID ID                     `json:"project_id" validate:"required"`
	Name      string                 `json:"name,omitempty"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

type Task struct {
	ID        ID      `json:"id"`
	ProjectID ID      `json:"project_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type TaskFile struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// --- Analysis ---

type SubmitAnalysisRequest struct {
	ProjectID  ID                     `json:"project_id" validate:"required"`
	Name       string                 `json:"name" validate:"required"`
	Config     map[string]interface{} `json:"config"`
	TemplateID *string                `json:"template_id"`
}

type AnalysisTask struct {
	ID        ID     `json:"id"`
	ProjectID ID     `json:"project_id,omitempty"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type ReportResponse struct {
	Content string `json:"content"`
}

type LogsResponse struct {
	Logs string `json:"logs"`
}

// --- Library ---

type LibraryModel struct {
	Name        string `json:"name"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description,omitempty"`
}
