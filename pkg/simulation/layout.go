package simulation

import (
	"context"
	"encoding/json"
	"strings"

	"tricys-client/internal/dto"
)

// SaveComponentPosition moves a component locally, then persists the move.
// A failed save is logged; the local position stays.
func (s *Store) SaveComponentPosition(ctx context.Context, id string, x, y float64) {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		s.skipWrite("position", err)
		return
	}
	if s.structure != nil {
		for i := range s.structure.Components {
			if strings.EqualFold(s.structure.Components[i].ID, id) {
				s.structure.Components[i].Position = dto.Position{X: x, Y: y}
				break
			}
		}
	}
	s.changedLocked("position")
	s.unlock()

	if pid == "" {
		return
	}
	if err := s.deps.Projects.SavePosition(ctx, pid, dto.PositionUpdate{ID: id, X: x, Y: y}); err != nil {
		s.deps.Logger.Error(module, "Position save failed", map[string]interface{}{"project_id": pid, "component": id, "error": err.Error()})
	}
}

// SaveAnnotations replaces the annotation document, then persists it.
func (s *Store) SaveAnnotations(ctx context.Context, notes dto.Annotations) {
	if notes == nil {
		notes = dto.Annotations{}
	}
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		s.skipWrite("annotations", err)
		return
	}
	s.annotations = notes
	s.beginLocked(resourceAnnotations)
	s.changedLocked("annotations")
	s.unlock()

	if pid == "" {
		return
	}
	if err := s.deps.Projects.SaveAnnotations(ctx, pid, notes); err != nil {
		s.deps.Logger.Error(module, "Failed to save annotations", map[string]interface{}{"project_id": pid, "error": err.Error()})
	}
}

// LoadAnnotations refetches annotations; a failure leaves them empty.
func (s *Store) LoadAnnotations(ctx context.Context) {
	s.mu.Lock()
	pid := s.projectID
	gen := s.beginLocked(resourceAnnotations)
	s.mu.Unlock()
	if pid == "" {
		return
	}

	notes := s.fetchAnnotations(ctx, pid)

	s.mu.Lock()
	if s.currentLocked(resourceAnnotations, gen) && s.projectID == pid {
		s.annotations = notes
		s.changedLocked("annotations")
	}
	s.unlock()
}

func (s *Store) fetchAnnotations(ctx context.Context, pid string) dto.Annotations {
	notes, err := s.deps.Projects.GetAnnotations(ctx, pid)
	if err != nil || notes == nil {
		if err != nil {
			s.deps.Logger.Warn(module, "Failed to load annotations", map[string]interface{}{"project_id": pid, "error": err.Error()})
		}
		return dto.Annotations{}
	}
	return notes
}

// FetchHiddenComponents returns the sidebar config (hidden component ids),
// or nil when there is no project or the fetch fails.
func (s *Store) FetchHiddenComponents(ctx context.Context) json.RawMessage {
	s.mu.Lock()
	pid := s.projectID
	gen := s.beginLocked(resourceSidebar)
	s.mu.Unlock()
	if pid == "" {
		return nil
	}

	cfg := s.fetchSidebar(ctx, pid)

	s.mu.Lock()
	if s.currentLocked(resourceSidebar, gen) && s.projectID == pid {
		s.sidebar = cfg
	}
	s.mu.Unlock()
	return cfg
}

// SaveHiddenComponents replaces the sidebar config, then persists it. A
// failed save is logged; the local config stays.
func (s *Store) SaveHiddenComponents(ctx context.Context, hidden json.RawMessage) {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		s.skipWrite("sidebar", err)
		return
	}
	s.sidebar = append(json.RawMessage(nil), hidden...)
	s.beginLocked(resourceSidebar)
	s.changedLocked("sidebar")
	s.unlock()
	if pid == "" {
		return
	}
	if err := s.deps.Projects.SaveSidebarConfig(ctx, pid, hidden); err != nil {
		s.deps.Logger.Error(module, "Failed to save sidebar config", map[string]interface{}{"project_id": pid, "error": err.Error()})
	}
}

func (s *Store) fetchSidebar(ctx context.Context, pid string) json.RawMessage {
	cfg, err := s.deps.Projects.GetSidebarConfig(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load sidebar config", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return nil
	}
	return cfg
}
