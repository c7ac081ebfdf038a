package simulation

import (
	"context"

	"tricys-client/internal/dto"
)

type DashboardState struct {
	ShowDashboard    bool `json:"show_dashboard"`
	ShowLabels       bool `json:"show_labels"`
	ShowValues       bool `json:"show_values"`
	PrefersDashboard bool `json:"prefers_dashboard"`
	ShowAnalysis     bool `json:"show_analysis_panel"`
	DashboardMode    bool `json:"dashboard_mode"`
}

func (s *Store) Dashboard() DashboardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dashboardLocked()
}

func (s *Store) dashboardLocked() DashboardState {
	return DashboardState{
		ShowDashboard:    s.showDashboard,
		ShowLabels:       s.showLabels,
		ShowValues:       s.showValues,
		PrefersDashboard: s.prefersDashboard,
		ShowAnalysis:     s.showAnalysis,
		DashboardMode:    s.dashboardMode,
	}
}

// UpdateDashboardVisibility hides the dashboard without results or on a
// narrow viewport and otherwise follows the user's preference.
func (s *Store) UpdateDashboardVisibility() {
	s.mu.Lock()
	s.updateDashboardVisibilityLocked()
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) updateDashboardVisibilityLocked() {
	switch {
	case !s.hasData:
		s.showDashboard = false
	case s.viewportWidth < dashboardMinWidth:
		s.showDashboard = false
	default:
		s.showDashboard = s.prefersDashboard
	}
}

// SetViewportWidth records the viewer's width and re-derives visibility.
func (s *Store) SetViewportWidth(width int) {
	s.mu.Lock()
	s.viewportWidth = width
	s.updateDashboardVisibilityLocked()
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) ToggleDashboardPref(show bool) {
	s.mu.Lock()
	s.prefersDashboard = show
	s.showDashboard = show
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) ToggleDashboardMode() {
	s.mu.Lock()
	s.dashboardMode = !s.dashboardMode
	s.showDashboard = true
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) SetShowLabels(show bool) {
	s.mu.Lock()
	s.showLabels = show
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) SetShowValues(show bool) {
	s.mu.Lock()
	s.showValues = show
	s.changedLocked("dashboard")
	s.unlock()
}

func (s *Store) SetAnalysisPanel(show bool) {
	s.mu.Lock()
	s.showAnalysis = show
	s.changedLocked("dashboard")
	s.unlock()
}

// OpenAnalysisDashboard focuses one analysis task, hiding the panel and the
// playback dashboard.
func (s *Store) OpenAnalysisDashboard(task dto.AnalysisTask) {
	s.mu.Lock()
	s.currentAnalysis = &task
	s.showAnalysis = false
	s.showDashboard = false
	s.changedLocked("analysis_dashboard")
	s.unlock()
}

func (s *Store) CloseAnalysisDashboard() {
	s.mu.Lock()
	s.currentAnalysis = nil
	s.showDashboard = true
	s.showAnalysis = true
	s.changedLocked("analysis_dashboard")
	s.unlock()
}

func (s *Store) CurrentAnalysisTask() *dto.AnalysisTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentAnalysis == nil {
		return nil
	}
	t := *s.currentAnalysis
	return &t
}

// GraphSelection lists the components plotted in the result graph.
func (s *Store) GraphSelection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.graphSelection)
}

func (s *Store) ToggleGraphSelection(id string) {
	id = CanonicalID(id)
	s.mu.Lock()
	if _, ok := s.graphSelection[id]; ok {
		delete(s.graphSelection, id)
	} else {
		s.graphSelection[id] = struct{}{}
	}
	s.changedLocked("graph_selection")
	s.unlock()
}

func (s *Store) ResetGraphSelection() {
	s.mu.Lock()
	s.graphSelection = defaultGraphSet()
	s.changedLocked("graph_selection")
	s.unlock()
}

// --- Analysis tasks and library ---

func (s *Store) AnalysisTasks() []dto.AnalysisTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.AnalysisTask(nil), s.analysisTasks...)
}

// FetchAnalysisTasks refreshes the task list. Failures keep the old list.
func (s *Store) FetchAnalysisTasks(ctx context.Context) {
	s.mu.Lock()
	gen := s.beginLocked(resourceAnalysis)
	s.mu.Unlock()

	tasks, err := s.deps.Analysis.GetTasks(ctx, "")
	if err != nil {
		s.deps.Logger.Error(module, "Fetch tasks failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.currentLocked(resourceAnalysis, gen) {
		s.analysisTasks = tasks
		s.changedLocked("analysis_tasks")
	}
	s.unlock()
}

type AnalysisSubmission struct {
	Name       string                 `json:"name"`
	Config     map[string]interface{} `json:"config"`
	TemplateID *string                `json:"template_id"`
}

// SubmitAnalysisTask submits a job for the current project and refreshes the
// task list. A failure raises an error toast and returns false.
func (s *Store) SubmitAnalysisTask(ctx context.Context, sub AnalysisSubmission) bool {
	pid := s.CurrentProjectID()
	if _, err := s.deps.Analysis.SubmitTask(ctx, pid, sub.Name, sub.Config, sub.TemplateID); err != nil {
		s.deps.Logger.Error(module, "Analysis submit failed", map[string]interface{}{"project_id": pid, "error": err.Error()})
		msg := err.Error()
		if msg == "" {
			msg = "Could not submit analysis task."
		}
		s.toast("error", "SUBMISSION FAILED", msg)
		return false
	}
	s.FetchAnalysisTasks(ctx)
	return true
}

func (s *Store) DeleteAnalysisTask(ctx context.Context, taskID string) {
	if err := s.deps.Analysis.DeleteTask(ctx, taskID); err != nil {
		s.deps.Logger.Warn(module, "Delete analysis task failed", map[string]interface{}{"task_id": taskID, "error": err.Error()})
		return
	}
	s.FetchAnalysisTasks(ctx)
}

// TaskLogs returns the task's log text, or "" on failure.
func (s *Store) TaskLogs(ctx context.Context, taskID string) string {
	logs, err := s.deps.Analysis.GetTaskLogs(ctx, taskID)
	if err != nil {
		return ""
	}
	return logs
}

// TaskReport returns the markdown report, or "" on failure.
func (s *Store) TaskReport(ctx context.Context, taskID string) string {
	report, err := s.deps.Analysis.GetReport(ctx, taskID)
	if err != nil {
		s.deps.Logger.Error(module, "Fetch report failed", map[string]interface{}{"task_id": taskID, "error": err.Error()})
		return ""
	}
	return report
}

func (s *Store) LibraryModels() []dto.LibraryModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.LibraryModel(nil), s.libraryModels...)
}

func (s *Store) FetchLibraryModels(ctx context.Context) {
	s.mu.Lock()
	gen := s.beginLocked(resourceLibrary)
	s.mu.Unlock()

	models, err := s.deps.Library.GetModels(ctx)
	if err != nil {
		s.deps.Logger.Error(module, "Failed to fetch library models", map[string]interface{}{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.currentLocked(resourceLibrary, gen) {
		s.libraryModels = models
	}
	s.mu.Unlock()
}
