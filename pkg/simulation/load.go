package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tricys-client/internal/dto"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"
)

const (
	resourceProject     = "project"
	resourceParams      = "params"
	resourceRunConfig   = "run_config"
	resourceAlerts      = "alerts"
	resourceGroups      = "groups"
	resourceSidebar     = "sidebar"
	resourceAnnotations = "annotations"
	resourceAnalysis    = "analysis"
	resourceLibrary     = "library"
)

var (
	ErrNoProject  = errors.New("simulation: no project selected")
	ErrStaleLoad  = errors.New("simulation: load superseded by a newer one")
	ErrNotLoaded  = errors.New("simulation: current project is not loaded")
	loadResources = []string{resourceProject, resourceParams, resourceRunConfig, resourceAlerts, resourceGroups, resourceSidebar, resourceAnnotations}
)

// loadResult collects everything a load fetched before it is committed in
// one step.
type loadResult struct {
	project     *dto.Project
	readOnly    bool
	params      []dto.Parameter
	defaults    []dto.Parameter
	series      *dto.SimulationData
	runConfig   dto.RunConfig
	runConfigOK bool
	alertRules  map[string]dto.AlertRule
	groups      map[string]dto.Group
	sidebar     json.RawMessage
	annotations dto.Annotations
}

// LoadData fetches a project and every facet of it. With an empty
// projectID the current (or last used) project is reloaded. Only the
// project fetch itself is fatal; every other facet falls back to an empty
// value. A load overtaken by a newer LoadData or ResetSession returns
// ErrStaleLoad and changes nothing.
func (s *Store) LoadData(ctx context.Context, projectID string) (*dto.Structure, error) {
	s.mu.Lock()
	if projectID != "" {
		s.projectID = projectID
	}
	pid := s.projectID
	if pid == "" {
		s.mu.Unlock()
		return nil, ErrNoProject
	}
	gens := make(map[string]uint64, len(loadResources))
	for _, r := range loadResources {
		gens[r] = s.beginLocked(r)
	}
	s.pauseLocked()
	s.unlock()

	if s.deps.Storage != nil {
		if err := s.deps.Storage.Set(ctx, store.KeyLastProjectID, pid); err != nil {
			s.deps.Logger.Warn(module, "Failed to remember project", map[string]interface{}{"project_id": pid, "error": err.Error()})
		}
	}

	res, err := s.fetchAll(ctx, pid)
	if err != nil {
		s.deps.Logger.Error(module, "Load failed", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return nil, err
	}

	s.mu.Lock()
	if !s.currentLocked(resourceProject, gens[resourceProject]) || s.projectID != pid {
		s.mu.Unlock()
		s.deps.Logger.Info(module, "Discarding stale load", map[string]interface{}{"project_id": pid})
		return nil, ErrStaleLoad
	}
	s.commitLocked(res, gens)
	s.loadedID = pid
	structure := cloneStructure(s.structure)
	s.emitLocked(events.TypeProjectLoaded, map[string]interface{}{
		"project_id": pid,
		"read_only":  s.readOnly,
		"has_data":   s.hasData,
		"max_time":   s.maxTime,
	})
	s.unlock()

	s.deps.Logger.Info(module, "Project loaded", map[string]interface{}{"project_id": pid})
	return structure, nil
}

func (s *Store) fetchAll(ctx context.Context, pid string) (*loadResult, error) {
	project, err := s.deps.Projects.GetProject(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", pid, err)
	}
	res := &loadResult{project: project}

	res.readOnly = true
	if s.deps.Session != nil {
		if user := s.deps.Session.CurrentUser(); user != nil {
			owner := project.UserID != "" && project.UserID == user.ID
			res.readOnly = !(owner || bool(user.IsSuperuser))
		}
	}

	res.params, res.defaults = s.fetchParams(ctx, pid)

	if data := project.SimulationData; data != nil {
		if err := data.Validate(); err != nil {
			s.deps.Logger.Warn(module, "Discarding simulation results", map[string]interface{}{"project_id": pid, "error": err.Error()})
		} else {
			res.series = &dto.SimulationData{
				Time:       append([]float64(nil), data.Time...),
				Components: canonicalSeries(data.Components),
			}
		}
	}

	cfg, err := s.deps.Projects.GetRunConfig(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load run config", map[string]interface{}{"project_id": pid, "error": err.Error()})
	} else {
		res.runConfig, res.runConfigOK = cfg, true
	}

	res.alertRules = s.fetchAlertRules(ctx, pid)
	res.groups = s.fetchGroups(ctx, pid)
	res.sidebar = s.fetchSidebar(ctx, pid)
	res.annotations = s.fetchAnnotations(ctx, pid)
	return res, nil
}

// fetchParams loads parameters, filling missing values from their default,
// and the defaults list. When the defaults endpoint fails the parameters
// themselves stand in.
func (s *Store) fetchParams(ctx context.Context, pid string) ([]dto.Parameter, []dto.Parameter) {
	params, err := s.deps.Projects.GetParameters(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load parameters", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return []dto.Parameter{}, []dto.Parameter{}
	}
	for i := range params {
		if params[i].Value == nil {
			params[i].Value = params[i].DefaultValue
		}
	}

	defaults, err := s.deps.Projects.GetDefaults(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load defaults, using parameters", map[string]interface{}{"project_id": pid, "error": err.Error()})
		defaults = append([]dto.Parameter(nil), params...)
	}
	if defaults == nil {
		defaults = []dto.Parameter{}
	}
	return params, defaults
}

func (s *Store) commitLocked(res *loadResult, gens map[string]uint64) {
	p := res.project
	s.structure = p.Structure
	if s.structure == nil {
		s.structure = &dto.Structure{Components: []dto.Component{}, Connections: []dto.Connection{}}
	}
	s.modelConfig = p.VisualConfig
	if s.modelConfig == nil {
		s.modelConfig = dto.VisualConfig{}
	}
	s.connStyles = stylesFromConfig(s.modelConfig)
	s.readOnly = res.readOnly

	if s.currentLocked(resourceParams, gens[resourceParams]) {
		s.params, s.defaults = res.params, res.defaults
	}

	s.series = res.series
	s.hasData = res.series != nil
	s.maxTime = DefaultMaxTime
	if res.series != nil && len(res.series.Time) > 0 {
		s.maxTime = res.series.Time[len(res.series.Time)-1]
		s.currentTime = 0
	}

	if s.currentLocked(resourceRunConfig, gens[resourceRunConfig]) {
		if res.runConfigOK {
			s.lastConfig = res.runConfig
			if step, ok := res.runConfig.StepSize(); ok && step > 0 {
				s.step = step
			}
		} else {
			s.lastConfig = nil
			s.step = DefaultStep
		}
	}
	if s.currentLocked(resourceAlerts, gens[resourceAlerts]) {
		s.alertRules = res.alertRules
	}
	if s.currentLocked(resourceGroups, gens[resourceGroups]) {
		s.groups = res.groups
	}
	if s.currentLocked(resourceSidebar, gens[resourceSidebar]) {
		s.sidebar = res.sidebar
	}
	if s.currentLocked(resourceAnnotations, gens[resourceAnnotations]) {
		s.annotations = res.annotations
	}

	s.updateDashboardVisibilityLocked()
	if s.hasData {
		s.scanForAlertsLocked()
	}
}
