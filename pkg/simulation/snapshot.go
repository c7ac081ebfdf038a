package simulation

import "tricys-client/internal/dto"

// Snapshot is a consistent read of the viewer-facing state.
type Snapshot struct {
	ProjectID      string                            `json:"project_id"`
	TaskID         string                            `json:"task_id,omitempty"`
	ReadOnly       bool                              `json:"read_only"`
	CurrentTime    float64                           `json:"current_time"`
	MaxTime        float64                           `json:"max_time"`
	Step           float64                           `json:"simulation_step"`
	Playing        bool                              `json:"is_playing"`
	HasData        bool                              `json:"has_simulation_data"`
	ActiveAlert    *ActiveAlert                      `json:"active_alert"`
	Ignored        []string                          `json:"ignored_components"`
	Groups         map[string]dto.Group              `json:"groups"`
	ExpandedGroup  string                            `json:"expanded_group,omitempty"`
	Selection      []string                          `json:"selection"`
	SelectedConn   string                            `json:"selected_connection,omitempty"`
	GraphSelection []string                          `json:"graph_selection"`
	ModifiedParams map[string]map[string]interface{} `json:"modified_params"`
	DataSlice      map[string]float64                `json:"data_slice"`
	Dashboard      DashboardState                    `json:"dashboard"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ProjectID:      s.projectID,
		TaskID:         s.taskID,
		ReadOnly:       s.readOnly,
		CurrentTime:    s.currentTime,
		MaxTime:        s.maxTime,
		Step:           s.step,
		Playing:        s.playing,
		HasData:        s.hasData,
		Ignored:        sortedKeys(s.ignored),
		Groups:         copyGroups(s.groups),
		ExpandedGroup:  s.expandedGroup,
		Selection:      append([]string{}, s.selection...),
		SelectedConn:   s.selectedConn,
		GraphSelection: sortedKeys(s.graphSelection),
		ModifiedParams: s.modifiedParamsLocked(),
		DataSlice:      s.dataSliceLocked(),
		Dashboard:      s.dashboardLocked(),
	}
	if s.activeAlert != nil {
		a := *s.activeAlert
		snap.ActiveAlert = &a
	}
	return snap
}
