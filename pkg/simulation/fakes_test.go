package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"
)

var errBackend = errors.New("backend unavailable")

// fakeProjects serves canned facets and records every write.
type fakeProjects struct {
	mu sync.Mutex

	project     *dto.Project
	projectErr  error
	params      []dto.Parameter
	paramsErr   error
	defaults    []dto.Parameter
	defaultsErr error
	runConfig   dto.RunConfig
	runErr      error
	alerts      map[string]dto.AlertRule
	alertsErr   error
	groups      map[string]dto.Group
	annotations dto.Annotations
	sidebar     json.RawMessage
	saveErr     error

	// gate, when set, blocks GetProject until closed.
	gate chan struct{}

	savedParams     [][]dto.Parameter
	savedParamPIDs  []string
	savedGroups     []map[string]dto.Group
	savedRunConfigs []dto.RunConfig
	savedAlerts     []map[string]dto.AlertRule
	savedVisual     []dto.VisualConfig
	savedPositions  []dto.PositionUpdate
	savedNotes      []dto.Annotations
	savedSidebar    []json.RawMessage
}

func (f *fakeProjects) GetProject(_ context.Context, id string) (*dto.Project, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	p := *f.project
	p.ID = dto.ID(id)
	return &p, nil
}

func (f *fakeProjects) GetParameters(context.Context, string) ([]dto.Parameter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.Parameter(nil), f.params...), f.paramsErr
}

func (f *fakeProjects) GetDefaults(context.Context, string) ([]dto.Parameter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defaultsErr != nil {
		return nil, f.defaultsErr
	}
	return append([]dto.Parameter(nil), f.defaults...), nil
}

func (f *fakeProjects) SaveParameters(_ context.Context, pid string, params []dto.Parameter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedParams = append(f.savedParams, params)
	f.savedParamPIDs = append(f.savedParamPIDs, pid)
	return f.saveErr
}

func (f *fakeProjects) GetRunConfig(context.Context, string) (dto.RunConfig, error) {
	return f.runConfig, f.runErr
}

func (f *fakeProjects) SaveRunConfig(_ context.Context, _ string, cfg dto.RunConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedRunConfigs = append(f.savedRunConfigs, cfg)
	return f.saveErr
}

func (f *fakeProjects) GetGroups(context.Context, string) (map[string]dto.Group, error) {
	return f.groups, nil
}

func (f *fakeProjects) SaveGroups(_ context.Context, _ string, groups map[string]dto.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedGroups = append(f.savedGroups, groups)
	return f.saveErr
}

func (f *fakeProjects) SavePosition(_ context.Context, _ string, u dto.PositionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedPositions = append(f.savedPositions, u)
	return f.saveErr
}

func (f *fakeProjects) SaveVisualConfig(_ context.Context, _ string, cfg dto.VisualConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedVisual = append(f.savedVisual, cfg)
	return f.saveErr
}

func (f *fakeProjects) GetSidebarConfig(context.Context, string) (json.RawMessage, error) {
	return f.sidebar, nil
}

func (f *fakeProjects) SaveSidebarConfig(_ context.Context, _ string, cfg json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedSidebar = append(f.savedSidebar, cfg)
	return f.saveErr
}

func (f *fakeProjects) GetAnnotations(context.Context, string) (dto.Annotations, error) {
	return f.annotations, nil
}

func (f *fakeProjects) SaveAnnotations(_ context.Context, _ string, notes dto.Annotations) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedNotes = append(f.savedNotes, notes)
	return f.saveErr
}

func (f *fakeProjects) GetAlerts(context.Context, string) (map[string]dto.AlertRule, error) {
	return f.alerts, f.alertsErr
}

func (f *fakeProjects) SaveAlerts(_ context.Context, _ string, rules map[string]dto.AlertRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedAlerts = append(f.savedAlerts, rules)
	return nil
}

type fakeAnalysis struct {
	tasks     []dto.AnalysisTask
	submitErr error
	fetches   int
}

func (f *fakeAnalysis) GetTasks(context.Context, string) ([]dto.AnalysisTask, error) {
	f.fetches++
	return f.tasks, nil
}

func (f *fakeAnalysis) SubmitTask(_ context.Context, pid, name string, _ map[string]interface{}, _ *string) (*dto.AnalysisTask, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	t := dto.AnalysisTask{ID: "a1", ProjectID: dto.ID(pid), Name: name, Status: "pending"}
	f.tasks = append(f.tasks, t)
	return &t, nil
}

func (f *fakeAnalysis) DeleteTask(context.Context, string) error { return nil }

func (f *fakeAnalysis) GetTaskLogs(context.Context, string) (string, error) { return "", errBackend }

func (f *fakeAnalysis) GetReport(context.Context, string) (string, error) { return "# ok", nil }

type fakeSession struct{ user *dto.User }

func (f fakeSession) CurrentUser() *dto.User { return f.user }

type fakeToaster struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeToaster) Toast(_, title, _ string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return int64(len(f.titles))
}

// manualTicker fires only when the test says so.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.stopped) }) }

// seriesProject is time=[0,1,2] with component x=[5,15,25], owned by user 1.
func seriesProject() *dto.Project {
	return &dto.Project{
		ProjectSummary: dto.ProjectSummary{UserID: "1"},
		Structure: &dto.Structure{
			Components: []dto.Component{
				{ID: "X", Position: dto.Position{X: 1, Y: 1}},
				{ID: "Y"},
			},
			Connections: []dto.Connection{{From: "X", To: "Y"}},
		},
		SimulationData: &dto.SimulationData{
			Time:       []float64{0, 1, 2},
			Components: map[string][]float64{"X": {5, 15, 25}},
		},
	}
}

type recordingPublisher struct {
	mu  sync.Mutex
	log []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, e)
	return nil
}

func (r *recordingPublisher) ofType(t string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.log {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	store    *Store
	events   *recordingPublisher
	projects *fakeProjects
	analysis *fakeAnalysis
	toaster  *fakeToaster
	storage  *store.MemoryStore
	tickers  chan *manualTicker
}

func newHarness(projects *fakeProjects, user *dto.User) *harness {
	h := &harness{
		projects: projects,
		analysis: &fakeAnalysis{},
		toaster:  &fakeToaster{},
		events:   &recordingPublisher{},
		storage:  store.NewMemoryStore(),
		tickers:  make(chan *manualTicker, 8),
	}
	h.store = New(Deps{
		Projects:  projects,
		Analysis:  h.analysis,
		Session:   fakeSession{user: user},
		Storage:   h.storage,
		Publisher: h.events,
		Toaster:   h.toaster,
		Logger:    logger.NewNopLogger(),
	}, Options{
		NewTicker: func(time.Duration) Ticker {
			t := newManualTicker()
			h.tickers <- t
			return t
		},
		Now: func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return h
}
