package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"tricys-client/internal/dto"
)

const (
	globalComponent = "global"
	paramEpsilon    = 1e-9
)

var leadingFloat = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// IsParamDifferent compares a current and a default value. When both read as
// numbers they differ only beyond 1e-9; otherwise they are compared as text.
func IsParamDifferent(a, b interface{}) bool {
	if a == nil && b == nil {
		return false
	}
	sa, sb := paramString(a), paramString(b)
	na, okA := parseLeadingFloat(sa)
	nb, okB := parseLeadingFloat(sb)
	if okA && okB {
		return math.Abs(na-nb) > paramEpsilon
	}
	return sa != sb
}

func paramString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	return fmt.Sprint(v)
}

// parseLeadingFloat reads the numeric prefix of s, ignoring leading space,
// so "300 K" parses as 300.
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// splitParamName splits "comp.param.sub" into ("comp", "param.sub"); bare
// names belong to the global component.
func splitParamName(name string) (string, string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return globalComponent, name
}

func fullParamName(componentID, paramName string) string {
	if componentID == globalComponent {
		return paramName
	}
	return componentID + "." + paramName
}

// UnflattenParams groups a flat or partly nested parameter map by component.
// Dotted keys split on the first dot, nested objects merge under their key
// and bare scalars land in "global". Component ids are canonicalized.
func UnflattenParams(input map[string]interface{}) map[string]map[string]interface{} {
	nested := make(map[string]map[string]interface{})
	bucket := func(id string) map[string]interface{} {
		if nested[id] == nil {
			nested[id] = make(map[string]interface{})
		}
		return nested[id]
	}
	for key, val := range input {
		if obj, ok := val.(map[string]interface{}); ok {
			b := bucket(CanonicalID(key))
			for k, v := range obj {
				b[k] = v
			}
			continue
		}
		if strings.Contains(key, ".") {
			comp, param := splitParamName(key)
			bucket(CanonicalID(comp))[param] = val
			continue
		}
		bucket(globalComponent)[key] = val
	}
	return nested
}

// ModifiedParams lists every parameter whose value differs from its default,
// grouped by component id.
func (s *Store) ModifiedParams() map[string]map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modifiedParamsLocked()
}

func (s *Store) modifiedParamsLocked() map[string]map[string]interface{} {
	defaults := make(map[string]interface{}, len(s.defaults))
	for _, p := range s.defaults {
		defaults[p.Name] = p.DefaultValue
	}

	diffs := make(map[string]map[string]interface{})
	for _, p := range s.params {
		def, ok := defaults[p.Name]
		if !ok {
			def = p.DefaultValue
		}
		if !IsParamDifferent(p.Value, def) {
			continue
		}
		comp, key := splitParamName(p.Name)
		if diffs[comp] == nil {
			diffs[comp] = make(map[string]interface{})
		}
		diffs[comp][key] = p.Value
	}
	return diffs
}

// UpdateParam sets componentID.paramName, appending it when unknown, and
// saves the whole collection. Local state is kept if the save fails.
func (s *Store) UpdateParam(ctx context.Context, componentID, paramName string, value interface{}) error {
	name := fullParamName(componentID, paramName)

	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	found := false
	for i := range s.params {
		if s.params[i].Name == name {
			s.params[i].Value = value
			found = true
			break
		}
	}
	if !found {
		s.params = append(s.params, dto.Parameter{Name: name, Value: value, DefaultValue: value})
	}
	snapshot := append([]dto.Parameter(nil), s.params...)
	s.changedLocked("params")
	s.unlock()

	return s.saveParameters(ctx, pid, snapshot)
}

// RevertParam restores a parameter to its default. It does nothing unless
// both the parameter and its default exist.
func (s *Store) RevertParam(ctx context.Context, componentID, paramName string) (bool, error) {
	name := fullParamName(componentID, paramName)

	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	idx := -1
	for i := range s.params {
		if s.params[i].Name == name {
			idx = i
			break
		}
	}
	var def *dto.Parameter
	for i := range s.defaults {
		if s.defaults[i].Name == name {
			def = &s.defaults[i]
			break
		}
	}
	if idx < 0 || def == nil {
		s.mu.Unlock()
		return false, nil
	}
	s.params[idx].Value = def.DefaultValue
	snapshot := append([]dto.Parameter(nil), s.params...)
	s.changedLocked("params")
	s.unlock()

	return true, s.saveParameters(ctx, pid, snapshot)
}

// SaveParameters overwrites the remote parameter collection.
func (s *Store) SaveParameters(ctx context.Context, params []dto.Parameter) error {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.saveParameters(ctx, pid, params)
}

func (s *Store) saveParameters(ctx context.Context, pid string, params []dto.Parameter) error {
	if pid == "" {
		return nil
	}
	if err := s.deps.Projects.SaveParameters(ctx, pid, params); err != nil {
		s.deps.Logger.Error(module, "Failed to save parameters", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return err
	}
	return nil
}
