package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrSeriesMisaligned = errors.New("component series length differs from time axis")

type ProjectSummary struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserID      ID     `json:"user_id"`
	IsPublic    Flag   `json:"is_public"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type Project struct {
	ProjectSummary
	Structure      *Structure      `json:"structure,omitempty"`
	VisualConfig   VisualConfig    `json:"visual_config,omitempty"`
	SimulationData *SimulationData `json:"simulation_data,omitempty"`
}

func (p *Project) Validate() error {
	if p.ID == "" {
		return errors.New("project: missing id")
	}
	return nil
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Component struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Position Position               `json:"position"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Structure struct {
	Components  []Component  `json:"components"`
	Connections []Connection `json:"connections"`
}

// SimulationData is a shared time axis plus one sample slice per component.
type SimulationData struct {
	Time       []float64            `json:"time"`
	Components map[string][]float64 `json:"components"`
}

func (d *SimulationData) Validate() error {
	for id, values := range d.Components {
		if len(values) != len(d.Time) {
			return fmt.Errorf("%w: %s has %d samples, time has %d", ErrSeriesMisaligned, id, len(values), len(d.Time))
		}
	}
	return nil
}

type Parameter struct {
	Name         string      `json:"name" validate:"required"`
	Value        interface{} `json:"value"`
	DefaultValue interface{} `json:"defaultValue"`
	Unit         string      `json:"unit,omitempty"`
	Description  string      `json:"description,omitempty"`
}

// RunConfig is relayed mostly verbatim; the client only reads the step size.
type RunConfig map[string]interface{}

// StepSize returns simulation.step_size, accepting numbers or numeric strings.
func (c RunConfig) StepSize() (float64, bool) {
	sim, ok := c["simulation"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	switch v := sim["step_size"].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

type AlertRule struct {
	Enabled   bool    `json:"enabled"`
	Operator  string  `json:"operator" validate:"oneof=< >"`
	Threshold float64 `json:"threshold"`
}

type ConnectionStyle struct {
	Color   string  `json:"color"`
	Type    string  `json:"type"`
	Speed   float64 `json:"speed"`
	Opacity float64 `json:"opacity"`
	Width   float64 `json:"width"`
}

type Group struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Children []string `json:"children"`
	Expanded bool     `json:"expanded"`
}

type PositionUpdate struct {
	ID string  `json:"id" validate:"required"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// VisualConfig is keyed by component id plus reserved keys such as the
// connection style table.
type VisualConfig map[string]json.RawMessage

type Annotations map[string]interface{}
