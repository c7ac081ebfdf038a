package simulation

import (
	"context"
	"encoding/json"

	"tricys-client/internal/dto"
)

const allConnections = "ALL"

// ConnectionStyle returns the stored style for id, or the default.
func (s *Store) ConnectionStyle(id string) dto.ConnectionStyle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.connStyles[id]; ok {
		return st
	}
	return DefaultConnectionStyle
}

func (s *Store) ConnectionStyles() map[string]dto.ConnectionStyle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]dto.ConnectionStyle, len(s.connStyles))
	for k, v := range s.connStyles {
		out[k] = v
	}
	return out
}

// UpdateConnectionStyle stores style for one connection. Zero fields fall
// back to the default style.
func (s *Store) UpdateConnectionStyle(ctx context.Context, id string, style dto.ConnectionStyle) {
	s.mu.Lock()
	if _, err := s.saveTargetLocked(); err != nil {
		s.mu.Unlock()
		s.skipWrite("connection_styles", err)
		return
	}
	s.connStyles[id] = withDefaults(style)
	s.changedLocked("connection_styles")
	pid, cfg := s.stylesConfigLocked()
	s.unlock()

	s.persistVisualConfig(ctx, pid, cfg)
}

// SyncAllConnections applies one style to every connection in the graph and
// drops the catch-all entry.
func (s *Store) SyncAllConnections(ctx context.Context, style dto.ConnectionStyle) {
	s.mu.Lock()
	if _, err := s.saveTargetLocked(); err != nil {
		s.mu.Unlock()
		s.skipWrite("connection_styles", err)
		return
	}
	if s.structure == nil || len(s.structure.Connections) == 0 {
		s.mu.Unlock()
		return
	}
	styles := make(map[string]dto.ConnectionStyle, len(s.connStyles))
	for k, v := range s.connStyles {
		if k != allConnections {
			styles[k] = v
		}
	}
	for _, c := range s.structure.Connections {
		styles[ConnectionID(c.From, c.To)] = style
	}
	s.connStyles = styles
	s.changedLocked("connection_styles")
	pid, cfg := s.stylesConfigLocked()
	s.unlock()

	s.persistVisualConfig(ctx, pid, cfg)
}

// stylesConfigLocked folds the style table into the visual config under the
// reserved key and returns what should be written.
func (s *Store) stylesConfigLocked() (string, dto.VisualConfig) {
	merged := make(dto.VisualConfig, len(s.modelConfig)+1)
	for k, v := range s.modelConfig {
		merged[k] = v
	}
	raw, err := json.Marshal(s.connStyles)
	if err == nil {
		merged[ConnectionStylesKey] = raw
	}
	s.modelConfig = merged
	out := make(dto.VisualConfig, len(merged))
	for k, v := range merged {
		out[k] = v
	}
	return s.loadedID, out
}

func (s *Store) persistVisualConfig(ctx context.Context, pid string, cfg dto.VisualConfig) {
	if pid == "" {
		return
	}
	if err := s.deps.Projects.SaveVisualConfig(ctx, pid, cfg); err != nil {
		s.deps.Logger.Error(module, "Failed to save connection styles", map[string]interface{}{"project_id": pid, "error": err.Error()})
	}
}

func withDefaults(style dto.ConnectionStyle) dto.ConnectionStyle {
	def := DefaultConnectionStyle
	if style.Color == "" {
		style.Color = def.Color
	}
	if style.Type == "" {
		style.Type = def.Type
	}
	if style.Speed == 0 {
		style.Speed = def.Speed
	}
	if style.Opacity == 0 {
		style.Opacity = def.Opacity
	}
	if style.Width == 0 {
		style.Width = def.Width
	}
	return style
}

func stylesFromConfig(cfg dto.VisualConfig) map[string]dto.ConnectionStyle {
	out := make(map[string]dto.ConnectionStyle)
	raw, ok := cfg[ConnectionStylesKey]
	if !ok {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return make(map[string]dto.ConnectionStyle)
	}
	return out
}
