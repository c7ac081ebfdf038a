package simulation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tricys-client/internal/dto"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"
)

func TestLoadDataWithoutProject(t *testing.T) {
	h := newHarness(&fakeProjects{}, nil)
	_, err := h.store.LoadData(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestLoadDataRemembersProject(t *testing.T) {
	h := loadedHarness(t)
	ctx := context.Background()

	assert.Equal(t, "p1", store.Lookup(ctx, h.storage, store.KeyLastProjectID))

	next := New(Deps{Projects: h.projects, Storage: h.storage}, Options{})
	assert.Equal(t, "p1", next.CurrentProjectID())
	_, err := next.LoadData(ctx, "")
	assert.NoError(t, err)

	loaded := h.events.ofType(events.TypeProjectLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, "p1", loaded[0].Payload()["project_id"])
}

func TestLoadDataReadOnly(t *testing.T) {
	tests := []struct {
		name     string
		user     *dto.User
		readOnly bool
	}{
		{"anonymous", nil, true},
		{"owner", &dto.User{ID: "1", Username: "owner"}, false},
		{"superuser", &dto.User{ID: "2", Username: "root", IsSuperuser: true}, false},
		{"stranger", &dto.User{ID: "3", Username: "guest"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(&fakeProjects{project: seriesProject()}, tt.user)
			_, err := h.store.LoadData(context.Background(), "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.readOnly, h.store.ReadOnly())
		})
	}
}

func TestLoadDataProjectFailureIsFatal(t *testing.T) {
	h := newHarness(&fakeProjects{projectErr: errBackend}, nil)
	structure, err := h.store.LoadData(context.Background(), "p1")
	assert.ErrorIs(t, err, errBackend)
	assert.Nil(t, structure)
	assert.False(t, h.store.HasSimulationData())
}

func TestLoadDataFacetFallbacks(t *testing.T) {
	h := newHarness(&fakeProjects{
		project:   seriesProject(),
		paramsErr: errBackend,
		runErr:    errBackend,
		alertsErr: errBackend,
	}, nil)

	structure, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, structure)
	assert.Len(t, structure.Components, 2)

	assert.Empty(t, h.store.Parameters())
	assert.Empty(t, h.store.ModifiedParams())
	assert.Nil(t, h.store.LastRunConfig())
	assert.Equal(t, DefaultStep, h.store.SimulationStep())
	assert.Empty(t, h.store.AlertRules())
	assert.Empty(t, h.store.Groups())
	assert.Empty(t, h.store.Annotations())
	assert.True(t, h.store.HasSimulationData())
	assert.Equal(t, 2.0, h.store.MaxTime())
}

func TestLoadDataWithoutResults(t *testing.T) {
	p := seriesProject()
	p.SimulationData = nil
	p.Structure = nil
	h := newHarness(&fakeProjects{project: p}, nil)

	structure, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, structure.Components)
	assert.False(t, h.store.HasSimulationData())
	assert.Equal(t, DefaultMaxTime, h.store.MaxTime())
	assert.False(t, h.store.Dashboard().ShowDashboard)
}

func TestLoadDataReadsStepSize(t *testing.T) {
	h := newHarness(&fakeProjects{
		project:   seriesProject(),
		runConfig: dto.RunConfig{"simulation": map[string]interface{}{"step_size": "0.25"}},
	}, nil)
	_, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.25, h.store.SimulationStep())

	h.store.SetTime(0.3)
	assert.Equal(t, 0.25, h.store.CurrentTime())
}

func TestLoadDataDiscardsSupersededLoad(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(&fakeProjects{project: seriesProject(), gate: gate}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := func(i int, pid string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.store.LoadData(ctx, pid)
		}()
		assert.Eventually(t, func() bool { return h.store.CurrentProjectID() == pid }, time.Second, time.Millisecond)
	}
	start(0, "p1")
	start(1, "p2")
	close(gate)
	wg.Wait()

	assert.ErrorIs(t, errs[0], ErrStaleLoad)
	assert.NoError(t, errs[1])
	assert.Equal(t, "p2", h.store.CurrentProjectID())
	loaded := h.events.ofType(events.TypeProjectLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, "p2", loaded[0].Payload()["project_id"])
}

func TestResetSessionDiscardsInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(&fakeProjects{project: seriesProject(), gate: gate}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.store.LoadData(context.Background(), "p1")
		done <- err
	}()
	assert.Eventually(t, func() bool { return h.store.CurrentProjectID() == "p1" }, time.Second, time.Millisecond)

	h.store.ResetSession()
	close(gate)

	assert.ErrorIs(t, <-done, ErrStaleLoad)
	assert.False(t, h.store.HasSimulationData())
	assert.Nil(t, h.store.Structure())
}

func TestClearResults(t *testing.T) {
	h := newHarness(&fakeProjects{
		project: seriesProject(),
		alerts:  map[string]dto.AlertRule{"x": aboveTen},
	}, nil)
	_, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, h.store.ActiveAlert())

	h.store.ClearResults()
	assert.False(t, h.store.HasSimulationData())
	assert.Nil(t, h.store.ActiveAlert())
	assert.Equal(t, 0.0, h.store.CurrentTime())
	assert.NotNil(t, h.store.Structure(), "structure survives")
	assert.Len(t, h.store.AlertRules(), 1, "rules survive")
}

func TestAnnotationsAndSidebar(t *testing.T) {
	projects := &fakeProjects{
		project:     seriesProject(),
		annotations: dto.Annotations{"note": "hot leg"},
		sidebar:     json.RawMessage(`{"hidden":["y"]}`),
	}
	h := newHarness(projects, nil)
	ctx := context.Background()
	_, err := h.store.LoadData(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, dto.Annotations{"note": "hot leg"}, h.store.Annotations())
	assert.JSONEq(t, `{"hidden":["y"]}`, string(h.store.SidebarConfig()))

	h.store.SaveAnnotations(ctx, dto.Annotations{"note": "cold leg"})
	require.Len(t, projects.savedNotes, 1)
	assert.Equal(t, "cold leg", h.store.Annotations()["note"])

	assert.JSONEq(t, `{"hidden":["y"]}`, string(h.store.FetchHiddenComponents(ctx)))

	projects.saveErr = errBackend
	h.store.SaveHiddenComponents(ctx, json.RawMessage(`{"hidden":["x","y"]}`))
	require.Len(t, projects.savedSidebar, 1)
	assert.JSONEq(t, `{"hidden":["x","y"]}`, string(projects.savedSidebar[0]))
	assert.JSONEq(t, `{"hidden":["x","y"]}`, string(h.store.SidebarConfig()), "local config kept after a failed save")

	var reasons []interface{}
	for _, e := range h.events.ofType(events.TypeStateChanged) {
		reasons = append(reasons, e.Payload()["reason"])
	}
	assert.Contains(t, reasons, "sidebar")
}

func TestSaveComponentPosition(t *testing.T) {
	h := loadedHarness(t)
	h.projects.saveErr = errBackend

	h.store.SaveComponentPosition(context.Background(), "x", 40, 50)

	require.Len(t, h.projects.savedPositions, 1)
	assert.Equal(t, dto.PositionUpdate{ID: "x", X: 40, Y: 50}, h.projects.savedPositions[0])
	assert.Equal(t, dto.Position{X: 40, Y: 50}, h.store.Structure().Components[0].Position, "local move kept after a failed save")
}

func TestLoadDataDropsMisalignedResults(t *testing.T) {
	p := seriesProject()
	p.SimulationData.Components["X"] = []float64{5, 15}
	h := newHarness(&fakeProjects{
		project: p,
		alerts:  map[string]dto.AlertRule{"x": aboveTen},
	}, nil)

	structure, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, structure.Components, 2, "the rest of the project still loads")
	assert.False(t, h.store.HasSimulationData())
	assert.Equal(t, DefaultMaxTime, h.store.MaxTime())
	assert.Nil(t, h.store.ActiveAlert())
	assert.Len(t, h.store.AlertRules(), 1)
}

func TestEditsWaitForProjectSwitch(t *testing.T) {
	projects := &fakeProjects{
		project:  seriesProject(),
		params:   []dto.Parameter{{Name: "a.secret", Value: 1.0, DefaultValue: 1.0}},
		defaults: []dto.Parameter{{Name: "a.secret", DefaultValue: 1.0}},
	}
	h := newHarness(projects, nil)
	ctx := context.Background()
	_, err := h.store.LoadData(ctx, "p1")
	require.NoError(t, err)

	gate := make(chan struct{})
	projects.mu.Lock()
	projects.gate = gate
	projects.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := h.store.LoadData(ctx, "p2")
		done <- err
	}()
	assert.Eventually(t, func() bool { return h.store.CurrentProjectID() == "p2" }, time.Second, time.Millisecond)

	assert.ErrorIs(t, h.store.UpdateParam(ctx, "a", "secret", 2), ErrNotLoaded)
	_, err = h.store.RevertParam(ctx, "a", "secret")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, h.store.SaveAlertRules(ctx, map[string]dto.AlertRule{"x": aboveTen}), ErrNotLoaded)
	assert.ErrorIs(t, h.store.DissolveGroup(ctx, "group_1"), ErrNotLoaded)
	h.store.SaveComponentPosition(ctx, "x", 9, 9)
	h.store.SaveHiddenComponents(ctx, json.RawMessage(`{"hidden":["x"]}`))

	close(gate)
	require.NoError(t, <-done)

	projects.mu.Lock()
	assert.Empty(t, projects.savedParams, "p1's parameters never reach p2")
	assert.Empty(t, projects.savedRunConfigs)
	assert.Empty(t, projects.savedPositions)
	assert.Empty(t, projects.savedSidebar)
	projects.mu.Unlock()

	require.NoError(t, h.store.UpdateParam(ctx, "a", "secret", 2))
	assert.Equal(t, []string{"p2"}, projects.savedParamPIDs)
}

func TestEditsAfterResetAreRefused(t *testing.T) {
	h := loadedHarness(t)
	h.store.ResetSession()

	assert.ErrorIs(t, h.store.UpdateParam(context.Background(), "x", "rate", 1), ErrNotLoaded)
	assert.Empty(t, h.store.Parameters())
	assert.Empty(t, h.projects.savedParams)
}
