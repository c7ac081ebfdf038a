// Package simulation holds the project-scoped viewer state: the structure
// graph, parameters, result series, alert rules, connection styles, groups
// and the playback clock. All remote calls go through the injected clients;
// the store's mutex is never held across them.
package simulation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tricys-client/internal/dto"
	"tricys-client/internal/metrics"
	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"
)

const (
	module = "SimulationStore"

	DefaultStep    = 0.5
	DefaultMaxTime = 100.0

	// ConnectionStylesKey is the reserved visual_config entry holding the
	// per-connection style table.
	ConnectionStylesKey = "__connection_styles__"

	dashboardMinWidth = 800
)

// DefaultConnectionStyle applies to every connection without an override.
var DefaultConnectionStyle = dto.ConnectionStyle{Color: "#FFD700", Type: "flow", Speed: 1.0, Opacity: 0.9, Width: 4.0}

var defaultGraphSelection = []string{"sds", "plasma", "tes"}

// ProjectClient is the slice of the project API the store reads and writes.
type ProjectClient interface {
	GetProject(ctx context.Context, projectID string) (*dto.Project, error)
	GetParameters(ctx context.Context, projectID string) ([]dto.Parameter, error)
	GetDefaults(ctx context.Context, projectID string) ([]dto.Parameter, error)
	SaveParameters(ctx context.Context, projectID string, params []dto.Parameter) error
	GetRunConfig(ctx context.Context, projectID string) (dto.RunConfig, error)
	SaveRunConfig(ctx context.Context, projectID string, cfg dto.RunConfig) error
	GetGroups(ctx context.Context, projectID string) (map[string]dto.Group, error)
	SaveGroups(ctx context.Context, projectID string, groups map[string]dto.Group) error
	SavePosition(ctx context.Context, projectID string, update dto.PositionUpdate) error
	SaveVisualConfig(ctx context.Context, projectID string, cfg dto.VisualConfig) error
	GetSidebarConfig(ctx context.Context, projectID string) (json.RawMessage, error)
	SaveSidebarConfig(ctx context.Context, projectID string, cfg json.RawMessage) error
	GetAnnotations(ctx context.Context, projectID string) (dto.Annotations, error)
	SaveAnnotations(ctx context.Context, projectID string, notes dto.Annotations) error
	GetAlerts(ctx context.Context, projectID string) (map[string]dto.AlertRule, error)
	SaveAlerts(ctx context.Context, projectID string, rules map[string]dto.AlertRule) error
}

type AnalysisClient interface {
	GetTasks(ctx context.Context, projectID string) ([]dto.AnalysisTask, error)
	SubmitTask(ctx context.Context, projectID, name string, config map[string]interface{}, templateID *string) (*dto.AnalysisTask, error)
	DeleteTask(ctx context.Context, taskID string) error
	GetTaskLogs(ctx context.Context, taskID string) (string, error)
	GetReport(ctx context.Context, taskID string) (string, error)
}

type LibraryClient interface {
	GetModels(ctx context.Context) ([]dto.LibraryModel, error)
}

// Session tells the store who is looking, for the read-only decision.
type Session interface {
	CurrentUser() *dto.User
}

// Toaster surfaces user-visible failures.
type Toaster interface {
	Toast(kind, title, message string) int64
}

// Ticker is the playback clock source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker { return stdTicker{t: time.NewTicker(d)} }

type Deps struct {
	Projects  ProjectClient
	Analysis  AnalysisClient
	Library   LibraryClient
	Session   Session
	Storage   store.KeyValueStore
	Publisher events.Publisher
	Toaster   Toaster
	Metrics   *metrics.Collector
	Logger    logger.ILogger
}

type Options struct {
	// PlaybackInterval is the wall-clock period between ticks.
	PlaybackInterval time.Duration
	ViewportWidth    int
	NewTicker        func(time.Duration) Ticker
	Now              func() time.Time
}

// ActiveAlert is the single triggered, unacknowledged violation.
type ActiveAlert struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Value string `json:"value"`
	Rule  string `json:"rule"`
}

type Store struct {
	deps     Deps
	interval time.Duration
	tickerFn func(time.Duration) Ticker
	now      func() time.Time

	mu sync.Mutex

	projectID   string
	loadedID    string
	taskID      string
	readOnly    bool
	structure   *dto.Structure
	modelConfig dto.VisualConfig
	annotations dto.Annotations
	sidebar     json.RawMessage
	params      []dto.Parameter
	defaults    []dto.Parameter
	lastConfig  dto.RunConfig

	series         *dto.SimulationData
	hasData        bool
	currentTime    float64
	maxTime        float64
	step           float64
	playing        bool
	stopTick       chan struct{}
	alertRules     map[string]dto.AlertRule
	activeAlert    *ActiveAlert
	ignored        map[string]struct{}
	selectedConn   string
	connStyles     map[string]dto.ConnectionStyle
	selection      []string
	groups         map[string]dto.Group
	expandedGroup  string
	graphSelection map[string]struct{}

	libraryModels    []dto.LibraryModel
	analysisTasks    []dto.AnalysisTask
	currentAnalysis  *dto.AnalysisTask
	showDashboard    bool
	showLabels       bool
	showValues       bool
	prefersDashboard bool
	showAnalysis     bool
	dashboardMode    bool
	viewportWidth    int

	generations map[string]uint64
	outbox      []events.Event
}

func New(deps Deps, opts Options) *Store {
	if deps.Publisher == nil {
		deps.Publisher = events.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if opts.PlaybackInterval <= 0 {
		opts.PlaybackInterval = time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newStdTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1280
	}

	s := &Store{
		deps:             deps,
		interval:         opts.PlaybackInterval,
		tickerFn:         opts.NewTicker,
		now:              opts.Now,
		step:             DefaultStep,
		maxTime:          DefaultMaxTime,
		showDashboard:    true,
		showLabels:       true,
		showValues:       true,
		prefersDashboard: true,
		viewportWidth:    opts.ViewportWidth,
		generations:      make(map[string]uint64),
	}
	s.resetLocked()
	if deps.Storage != nil {
		s.projectID = store.Lookup(context.Background(), deps.Storage, store.KeyLastProjectID)
	}
	return s
}

// unlock releases the mutex and then publishes whatever events the locked
// section queued.
func (s *Store) unlock() {
	pending := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, e := range pending {
		if err := s.deps.Publisher.Publish(context.Background(), e); err != nil {
			s.deps.Logger.Warn(module, "Failed to publish event", map[string]interface{}{"type": e.EventType(), "error": err.Error()})
		}
	}
}

func (s *Store) emitLocked(eventType string, data map[string]interface{}) {
	s.outbox = append(s.outbox, events.New(eventType, data))
}

func (s *Store) changedLocked(reason string) {
	s.emitLocked(events.TypeStateChanged, map[string]interface{}{"reason": reason, "project_id": s.projectID})
}

// begin starts a new generation for resource; responses carrying an older
// generation are discarded.
func (s *Store) beginLocked(resource string) uint64 {
	s.generations[resource]++
	return s.generations[resource]
}

func (s *Store) currentLocked(resource string, gen uint64) bool {
	return s.generations[resource] == gen
}

func (s *Store) toast(kind, title, message string) {
	if s.deps.Toaster != nil {
		s.deps.Toaster.Toast(kind, title, message)
	}
}

// saveTargetLocked returns the project that local edits are written to.
// It refuses while the facets in memory belong to another project than the
// current one: during a switch, after a failed switch, or after a reset.
func (s *Store) saveTargetLocked() (string, error) {
	if s.loadedID != s.projectID {
		return "", ErrNotLoaded
	}
	return s.loadedID, nil
}

func (s *Store) skipWrite(what string, err error) {
	s.deps.Logger.Warn(module, "Edit dropped", map[string]interface{}{"edit": what, "project_id": s.CurrentProjectID(), "error": err.Error()})
}

func (s *Store) CurrentProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

func (s *Store) CurrentTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

func (s *Store) SetCurrentTaskID(id string) {
	s.mu.Lock()
	s.taskID = id
	s.changedLocked("task")
	s.unlock()
}

func (s *Store) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}

func (s *Store) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

func (s *Store) MaxTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTime
}

func (s *Store) SimulationStep() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Store) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Store) HasSimulationData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData
}

func (s *Store) Structure() *dto.Structure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStructure(s.structure)
}

func (s *Store) Parameters() []dto.Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.Parameter(nil), s.params...)
}

func (s *Store) Annotations() dto.Annotations {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(dto.Annotations, len(s.annotations))
	for k, v := range s.annotations {
		out[k] = v
	}
	return out
}

func (s *Store) SidebarConfig() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(json.RawMessage(nil), s.sidebar...)
}

func (s *Store) LastRunConfig() dto.RunConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRunConfig(s.lastConfig)
}

func (s *Store) SelectedConnection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedConn
}

func (s *Store) SelectConnection(id string) {
	s.mu.Lock()
	s.selectedConn = id
	s.changedLocked("connection_selected")
	s.unlock()
}

func cloneStructure(st *dto.Structure) *dto.Structure {
	if st == nil {
		return nil
	}
	out := &dto.Structure{
		Components:  append([]dto.Component(nil), st.Components...),
		Connections: append([]dto.Connection(nil), st.Connections...),
	}
	return out
}

func copyRunConfig(cfg dto.RunConfig) dto.RunConfig {
	if cfg == nil {
		return nil
	}
	out := make(dto.RunConfig, len(cfg)+1)
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
