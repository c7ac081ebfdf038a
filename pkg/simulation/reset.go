package simulation

import (
	"sort"

	"tricys-client/internal/dto"
)

// ResetSession returns every project-scoped field to its initial value and
// invalidates in-flight loads. The simulation step is kept.
func (s *Store) ResetSession() {
	s.mu.Lock()
	s.pauseLocked()
	s.resetLocked()
	for _, r := range loadResources {
		s.beginLocked(r)
	}
	s.changedLocked("session_reset")
	s.unlock()
}

func (s *Store) resetLocked() {
	s.loadedID = ""
	s.currentTime = 0
	s.maxTime = DefaultMaxTime
	s.series = nil
	s.structure = nil
	s.hasData = false
	s.modelConfig = dto.VisualConfig{}
	s.annotations = dto.Annotations{}
	s.sidebar = nil
	s.params = []dto.Parameter{}
	s.defaults = []dto.Parameter{}
	s.lastConfig = nil
	s.activeAlert = nil
	s.ignored = make(map[string]struct{})
	s.alertRules = make(map[string]dto.AlertRule)
	s.selectedConn = ""
	s.connStyles = make(map[string]dto.ConnectionStyle)
	s.currentAnalysis = nil
	s.selection = nil
	s.groups = make(map[string]dto.Group)
	s.expandedGroup = ""
	s.graphSelection = defaultGraphSet()
}

// ClearResults drops the result series and everything derived from it.
// Structure, parameters and groups stay.
func (s *Store) ClearResults() {
	s.mu.Lock()
	s.pauseLocked()
	s.hasData = false
	s.series = nil
	s.currentTime = 0
	s.showLabels = true
	s.lastConfig = nil
	s.activeAlert = nil
	s.ignored = make(map[string]struct{})
	s.updateDashboardVisibilityLocked()
	s.changedLocked("results_cleared")
	s.unlock()
}

func defaultGraphSet() map[string]struct{} {
	set := make(map[string]struct{}, len(defaultGraphSelection))
	for _, id := range defaultGraphSelection {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
