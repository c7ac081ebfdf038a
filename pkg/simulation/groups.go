package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tricys-client/internal/dto"
)

var ErrSelectionTooSmall = errors.New("simulation: select at least two items to group")

func (s *Store) Groups() map[string]dto.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGroups(s.groups)
}

// Selection returns the multi-selection in the order items were picked.
func (s *Store) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

func (s *Store) ExpandedGroup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expandedGroup
}

func (s *Store) ToggleMultiSelect(id string) {
	s.mu.Lock()
	for i, sel := range s.selection {
		if sel == id {
			s.selection = append(s.selection[:i], s.selection[i+1:]...)
			s.changedLocked("selection")
			s.unlock()
			return
		}
	}
	s.selection = append(s.selection, id)
	s.changedLocked("selection")
	s.unlock()
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selection = nil
	s.changedLocked("selection")
	s.unlock()
}

// CreateGroup merges the current selection into one new group. Selected
// groups are dissolved and their members absorbed, so a group never holds
// another group. The new group id is returned even if persisting fails.
func (s *Store) CreateGroup(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	if len(s.selection) < 2 {
		s.mu.Unlock()
		return "", ErrSelectionTooSmall
	}
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	var children []string
	seen := make(map[string]struct{})
	add := func(id string) {
		id = CanonicalID(id)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		children = append(children, id)
	}

	var absorbed []string
	for _, raw := range s.selection {
		key, ok := s.findGroupLocked(raw)
		if !ok {
			add(raw)
			continue
		}
		for _, child := range s.groups[key].Children {
			add(child)
		}
		absorbed = append(absorbed, key)
	}

	groupID := s.newGroupIDLocked()
	if name == "" {
		name = fmt.Sprintf("Merged System %d", len(s.groups)+1)
	}
	s.groups[groupID] = dto.Group{ID: groupID, Name: name, Children: children}

	for _, key := range absorbed {
		delete(s.groups, key)
		if s.expandedGroup == key {
			s.expandedGroup = ""
		}
	}
	s.selection = nil
	snapshot := copyGroups(s.groups)
	s.beginLocked(resourceGroups)
	s.changedLocked("groups")
	s.unlock()

	return groupID, s.saveGroups(ctx, pid, snapshot)
}

// DissolveGroup removes a group; its members become top-level again.
func (s *Store) DissolveGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.groups, groupID)
	if s.expandedGroup == groupID {
		s.expandedGroup = ""
	}
	snapshot := copyGroups(s.groups)
	s.beginLocked(resourceGroups)
	s.changedLocked("groups")
	s.unlock()

	return s.saveGroups(ctx, pid, snapshot)
}

func (s *Store) SetExpandedGroup(groupID string) {
	s.mu.Lock()
	s.expandedGroup = groupID
	s.changedLocked("expanded_group")
	s.unlock()
}

func (s *Store) IsExpanded(groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expandedGroup == groupID
}

// RenderParentID resolves the node a component is drawn under: its group,
// unless that group is the expanded one, else the component itself.
func (s *Store) RenderParentID(componentID string) string {
	id := CanonicalID(componentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.groups))
	for k := range s.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, gid := range keys {
		for _, child := range s.groups[gid].Children {
			if child != id {
				continue
			}
			if s.expandedGroup == gid {
				return id
			}
			return gid
		}
	}
	return id
}

// LoadGroups refetches the group table; a failure leaves it empty.
func (s *Store) LoadGroups(ctx context.Context) {
	s.mu.Lock()
	pid := s.projectID
	gen := s.beginLocked(resourceGroups)
	s.mu.Unlock()
	if pid == "" {
		return
	}

	groups := s.fetchGroups(ctx, pid)

	s.mu.Lock()
	if s.currentLocked(resourceGroups, gen) && s.projectID == pid {
		s.groups = groups
		s.changedLocked("groups")
	}
	s.unlock()
}

// SaveGroups writes the current group table.
func (s *Store) SaveGroups(ctx context.Context) error {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	snapshot := copyGroups(s.groups)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.saveGroups(ctx, pid, snapshot)
}

func (s *Store) fetchGroups(ctx context.Context, pid string) map[string]dto.Group {
	groups, err := s.deps.Projects.GetGroups(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load groups", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return map[string]dto.Group{}
	}
	out := make(map[string]dto.Group, len(groups))
	for key, g := range groups {
		children := make([]string, 0, len(g.Children))
		for _, c := range g.Children {
			children = append(children, CanonicalID(c))
		}
		g.Children = children
		if g.ID == "" {
			g.ID = key
		}
		out[key] = g
	}
	return out
}

func (s *Store) saveGroups(ctx context.Context, pid string, groups map[string]dto.Group) error {
	if pid == "" {
		return nil
	}
	if err := s.deps.Projects.SaveGroups(ctx, pid, groups); err != nil {
		s.deps.Logger.Error(module, "Failed to save groups", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return err
	}
	return nil
}

// findGroupLocked matches id against group keys ignoring case.
func (s *Store) findGroupLocked(id string) (string, bool) {
	if _, ok := s.groups[id]; ok {
		return id, true
	}
	for key := range s.groups {
		if strings.EqualFold(key, id) {
			return key, true
		}
	}
	return "", false
}

func (s *Store) newGroupIDLocked() string {
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s%d", groupPrefix, ms)
		if _, taken := s.groups[id]; !taken {
			return id
		}
		ms++
	}
}

func copyGroups(groups map[string]dto.Group) map[string]dto.Group {
	out := make(map[string]dto.Group, len(groups))
	for k, g := range groups {
		g.Children = append([]string(nil), g.Children...)
		out[k] = g
	}
	return out
}
