package simulation

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"tricys-client/internal/dto"
	"tricys-client/pkg/events"
)

func (s *Store) ActiveAlert() *ActiveAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeAlert == nil {
		return nil
	}
	a := *s.activeAlert
	return &a
}

func (s *Store) AlertRules() map[string]dto.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]dto.AlertRule, len(s.alertRules))
	for k, v := range s.alertRules {
		out[k] = v
	}
	return out
}

// CheckAlerts evaluates every rule against the sample nearest the cursor.
func (s *Store) CheckAlerts() {
	s.mu.Lock()
	s.checkAlertsLocked()
	s.unlock()
}

// ScanForAlerts walks every sample of every rule and stops at the first
// violation, moving the cursor to it.
func (s *Store) ScanForAlerts() {
	s.mu.Lock()
	s.scanForAlertsLocked()
	s.unlock()
}

// IgnoreAlert clears the active alert and suppresses the component's rule
// until the session resets.
func (s *Store) IgnoreAlert(componentID string) {
	s.mu.Lock()
	s.ignored[CanonicalID(componentID)] = struct{}{}
	s.activeAlert = nil
	s.changedLocked("alert_ignored")
	s.unlock()
}

// ConfirmAlert acknowledges the active alert once.
func (s *Store) ConfirmAlert() {
	s.mu.Lock()
	s.activeAlert = nil
	s.changedLocked("alert_confirmed")
	s.unlock()
}

// SaveAlertRules replaces the rule set and stores it inside the run config.
// The dedicated alerts endpoint is written afterwards on a best-effort basis.
func (s *Store) SaveAlertRules(ctx context.Context, rules map[string]dto.AlertRule) error {
	s.mu.Lock()
	pid, err := s.saveTargetLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.alertRules = canonicalRules(rules)
	s.beginLocked(resourceAlerts)
	cfg := copyRunConfig(s.lastConfig)
	saved := make(map[string]dto.AlertRule, len(s.alertRules))
	for k, v := range s.alertRules {
		saved[k] = v
	}
	s.changedLocked("alert_rules")
	s.unlock()

	if pid == "" {
		return nil
	}
	if cfg == nil {
		cfg = dto.RunConfig{}
	}
	cfg["alert_rules"] = saved
	if err := s.deps.Projects.SaveRunConfig(ctx, pid, cfg); err != nil {
		s.deps.Logger.Error(module, "Failed to save alert rules", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return err
	}
	if err := s.deps.Projects.SaveAlerts(ctx, pid, saved); err != nil {
		s.deps.Logger.Warn(module, "Alerts endpoint save failed", map[string]interface{}{"project_id": pid, "error": err.Error()})
	}
	return nil
}

// LoadAlertRules refetches the rule set; a failure leaves it empty.
func (s *Store) LoadAlertRules(ctx context.Context) {
	s.mu.Lock()
	pid := s.projectID
	gen := s.beginLocked(resourceAlerts)
	s.mu.Unlock()
	if pid == "" {
		return
	}

	rules := s.fetchAlertRules(ctx, pid)

	s.mu.Lock()
	if s.currentLocked(resourceAlerts, gen) && s.projectID == pid {
		s.alertRules = rules
		s.changedLocked("alert_rules")
	}
	s.unlock()
}

func (s *Store) fetchAlertRules(ctx context.Context, pid string) map[string]dto.AlertRule {
	rules, err := s.deps.Projects.GetAlerts(ctx, pid)
	if err != nil {
		s.deps.Logger.Warn(module, "Failed to load alert rules", map[string]interface{}{"project_id": pid, "error": err.Error()})
		return map[string]dto.AlertRule{}
	}
	return canonicalRules(rules)
}

func canonicalRules(rules map[string]dto.AlertRule) map[string]dto.AlertRule {
	out := make(map[string]dto.AlertRule, len(rules))
	for k, v := range rules {
		out[CanonicalID(k)] = v
	}
	return out
}

// ruleOrder fixes the evaluation order so "first match wins" is stable.
func ruleOrder(rules map[string]dto.AlertRule) []string {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func violates(rule dto.AlertRule, v float64) bool {
	switch rule.Operator {
	case "<":
		return v < rule.Threshold
	case ">":
		return v > rule.Threshold
	}
	return false
}

func (s *Store) checkAlertsLocked() {
	if s.series == nil || s.activeAlert != nil {
		return
	}
	times := s.series.Time
	if len(times) == 0 {
		return
	}
	idx := nearestIndex(times, s.currentTime)
	if idx < 0 {
		idx = len(times) - 1
	}

	for _, id := range ruleOrder(s.alertRules) {
		rule := s.alertRules[id]
		if !s.armedLocked(id, rule) {
			continue
		}
		values, ok := s.series.Components[id]
		if !ok || idx >= len(values) {
			continue
		}
		if violates(rule, values[idx]) {
			s.triggerLocked(id, rule, s.currentTime, values[idx])
			return
		}
	}
}

func (s *Store) scanForAlertsLocked() {
	if s.series == nil || s.activeAlert != nil {
		return
	}
	times := s.series.Time

	for _, id := range ruleOrder(s.alertRules) {
		rule := s.alertRules[id]
		if !s.armedLocked(id, rule) {
			continue
		}
		values, ok := s.series.Components[id]
		if !ok {
			continue
		}
		for i, v := range values {
			if i >= len(times) {
				break
			}
			if violates(rule, v) {
				s.currentTime = times[i]
				s.triggerLocked(id, rule, times[i], v)
				return
			}
		}
	}
}

func (s *Store) armedLocked(id string, rule dto.AlertRule) bool {
	if !rule.Enabled {
		return false
	}
	_, ignored := s.ignored[id]
	return !ignored
}

func (s *Store) triggerLocked(id string, rule dto.AlertRule, at, value float64) {
	s.pauseLocked()
	s.activeAlert = &ActiveAlert{
		ID:    id,
		Time:  fmt.Sprintf("%.2f", at),
		Value: fmt.Sprintf("%.4f", value),
		Rule:  rule.Operator + " " + strconv.FormatFloat(rule.Threshold, 'f', -1, 64),
	}
	s.deps.Metrics.ObserveAlert(id)
	s.emitLocked(events.TypeAlertTriggered, map[string]interface{}{
		"project_id": s.projectID,
		"id":         s.activeAlert.ID,
		"time":       s.activeAlert.Time,
		"value":      s.activeAlert.Value,
		"rule":       s.activeAlert.Rule,
	})
}
