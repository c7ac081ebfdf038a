package simulation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tricys-client/internal/dto"
)

func TestCanonicalIDs(t *testing.T) {
	assert.Equal(t, "pump", CanonicalID("  Pump "))
	assert.Equal(t, "pump_tes", ConnectionID("PUMP", "Tes"))
	assert.True(t, IsGroup("group_17"))
	assert.False(t, IsGroup("pump"))
}

func TestConnectionStyleDefaults(t *testing.T) {
	h := loadedHarness(t)
	assert.Equal(t, DefaultConnectionStyle, h.store.ConnectionStyle("x_y"))

	h.store.UpdateConnectionStyle(context.Background(), "x_y", dto.ConnectionStyle{Color: "#00FF00", Width: 2})

	got := h.store.ConnectionStyle("x_y")
	assert.Equal(t, "#00FF00", got.Color)
	assert.Equal(t, 2.0, got.Width)
	assert.Equal(t, DefaultConnectionStyle.Type, got.Type)
	assert.Equal(t, DefaultConnectionStyle.Opacity, got.Opacity)

	require.Len(t, h.projects.savedVisual, 1)
	var stored map[string]dto.ConnectionStyle
	require.NoError(t, json.Unmarshal(h.projects.savedVisual[0][ConnectionStylesKey], &stored))
	assert.Equal(t, got, stored["x_y"])
}

func TestSyncAllConnections(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()
	h.store.UpdateConnectionStyle(ctx, allConnections, dto.ConnectionStyle{Color: "#111111"})

	style := dto.ConnectionStyle{Color: "#222222", Type: "pulse", Speed: 2, Opacity: 1, Width: 3}
	h.store.SyncAllConnections(ctx, style)

	assert.Equal(t, map[string]dto.ConnectionStyle{"x_y": style}, h.store.ConnectionStyles())
	require.Len(t, h.projects.savedVisual, 2)
}

func TestStylesRestoredFromVisualConfig(t *testing.T) {
	p := seriesProject()
	raw, err := json.Marshal(map[string]dto.ConnectionStyle{"x_y": {Color: "#ABCDEF", Type: "flow", Speed: 1, Opacity: 1, Width: 1}})
	require.NoError(t, err)
	p.VisualConfig = dto.VisualConfig{ConnectionStylesKey: raw, "x": json.RawMessage(`{"icon":"pump"}`)}
	h := newHarness(&fakeProjects{project: p}, nil)

	_, err = h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "#ABCDEF", h.store.ConnectionStyle("x_y").Color)

	h.store.UpdateConnectionStyle(context.Background(), "y_x", dto.ConnectionStyle{})
	saved := h.projects.savedVisual[0]
	assert.JSONEq(t, `{"icon":"pump"}`, string(saved["x"]), "other visual entries are preserved")
}

func TestDashboardVisibility(t *testing.T) {
	h := loadedHarness(t)
	assert.True(t, h.store.Dashboard().ShowDashboard)

	h.store.SetViewportWidth(640)
	assert.False(t, h.store.Dashboard().ShowDashboard)

	h.store.SetViewportWidth(1024)
	assert.True(t, h.store.Dashboard().ShowDashboard)

	h.store.ToggleDashboardPref(false)
	h.store.UpdateDashboardVisibility()
	assert.False(t, h.store.Dashboard().ShowDashboard)

	h.store.ToggleDashboardPref(true)
	h.store.ClearResults()
	assert.False(t, h.store.Dashboard().ShowDashboard)
}

func TestGraphSelection(t *testing.T) {
	h := loadedHarness(t)
	assert.Equal(t, []string{"plasma", "sds", "tes"}, h.store.GraphSelection())

	h.store.ToggleGraphSelection("TES")
	h.store.ToggleGraphSelection("Pump")
	assert.Equal(t, []string{"plasma", "pump", "sds"}, h.store.GraphSelection())

	h.store.ResetGraphSelection()
	assert.Equal(t, []string{"plasma", "sds", "tes"}, h.store.GraphSelection())
}

func TestAnalysisSubmission(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()

	assert.True(t, h.store.SubmitAnalysisTask(ctx, AnalysisSubmission{Name: "sweep"}))
	require.Len(t, h.store.AnalysisTasks(), 1)
	assert.Equal(t, dto.ID("p1"), h.store.AnalysisTasks()[0].ProjectID)

	h.analysis.submitErr = errBackend
	assert.False(t, h.store.SubmitAnalysisTask(ctx, AnalysisSubmission{Name: "again"}))
	assert.Equal(t, []string{"SUBMISSION FAILED"}, h.toaster.titles)

	assert.Empty(t, h.store.TaskLogs(ctx, "a1"))
	assert.Equal(t, "# ok", h.store.TaskReport(ctx, "a1"))

	h.store.OpenAnalysisDashboard(h.store.AnalysisTasks()[0])
	assert.Equal(t, dto.ID("a1"), h.store.CurrentAnalysisTask().ID)
	assert.False(t, h.store.Dashboard().ShowDashboard)
	h.store.CloseAnalysisDashboard()
	assert.Nil(t, h.store.CurrentAnalysisTask())
	assert.True(t, h.store.Dashboard().ShowAnalysis)
}

func TestSnapshotIsConsistent(t *testing.T) {
	h := newHarness(&fakeProjects{
		project: seriesProject(),
		alerts:  map[string]dto.AlertRule{"x": aboveTen},
	}, &dto.User{ID: "1", Username: "owner"})
	_, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)

	snap := h.store.Snapshot()
	assert.Equal(t, "p1", snap.ProjectID)
	assert.False(t, snap.ReadOnly)
	assert.Equal(t, 1.0, snap.CurrentTime)
	assert.Equal(t, map[string]float64{"x": 15}, snap.DataSlice)
	require.NotNil(t, snap.ActiveAlert)
	assert.Equal(t, "x", snap.ActiveAlert.ID)
}
