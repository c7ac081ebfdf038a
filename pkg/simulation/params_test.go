package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tricys-client/internal/dto"
)

func TestIsParamDifferent(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"same number", 1.0, 1.0, false},
		{"within epsilon", "1.0", "1.0000000001", false},
		{"numeric change", "1.0", "1.1", true},
		{"number vs numeric string", 300.0, "300", false},
		{"unit suffix", "300 K", 300.0, false},
		{"text equal", "on", "on", false},
		{"text differs", "on", "off", true},
		{"both nil", nil, nil, false},
		{"nil vs value", nil, 0.0, true},
		{"nil vs null text", nil, "null", false},
		{"bool", true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsParamDifferent(tt.a, tt.b))
			assert.False(t, IsParamDifferent(tt.a, tt.a), "a value never differs from itself")
		})
	}
}

func TestUnflattenParams(t *testing.T) {
	got := UnflattenParams(map[string]interface{}{
		"Blanket.tbr.max": 1.2,
		"pressure":        2.0,
		"Pump":            map[string]interface{}{"rate": 3.0},
		"pump.speed":      4.0,
	})

	assert.Equal(t, map[string]map[string]interface{}{
		"blanket": {"tbr.max": 1.2},
		"global":  {"pressure": 2.0},
		"pump":    {"rate": 3.0, "speed": 4.0},
	}, got)
}

func paramsProject() *fakeProjects {
	return &fakeProjects{
		project: seriesProject(),
		params: []dto.Parameter{
			{Name: "x.temp", Value: "300 K", DefaultValue: 300.0},
			{Name: "pressure", Value: 2.0, DefaultValue: 1.0},
			{Name: "x.flow", DefaultValue: 5.0},
		},
		defaultsErr: errBackend,
	}
}

func TestModifiedParamsAfterLoad(t *testing.T) {
	h := newHarness(paramsProject(), nil)
	_, err := h.store.LoadData(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, map[string]map[string]interface{}{
		"global": {"pressure": 2.0},
	}, h.store.ModifiedParams())

	var flow interface{}
	for _, p := range h.store.Parameters() {
		if p.Name == "x.flow" {
			flow = p.Value
		}
	}
	assert.Equal(t, 5.0, flow, "missing value is filled from its default")
}

func TestUpdateAndRevertParam(t *testing.T) {
	h := newHarness(paramsProject(), nil)
	ctx := context.Background()
	_, err := h.store.LoadData(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, h.store.UpdateParam(ctx, "x", "temp", 350.0))
	assert.Equal(t, 350.0, h.store.ModifiedParams()["x"]["temp"])
	require.Len(t, h.projects.savedParams, 1)

	require.NoError(t, h.store.UpdateParam(ctx, "global", "density", 9.0))
	last := h.projects.savedParams[len(h.projects.savedParams)-1]
	assert.Equal(t, "density", last[len(last)-1].Name)

	reverted, err := h.store.RevertParam(ctx, "x", "temp")
	require.NoError(t, err)
	assert.True(t, reverted)
	_, stillModified := h.store.ModifiedParams()["x"]
	assert.False(t, stillModified)

	reverted, err = h.store.RevertParam(ctx, "x", "unknown")
	require.NoError(t, err)
	assert.False(t, reverted)
}

func TestUpdateParamKeepsLocalValueOnSaveFailure(t *testing.T) {
	projects := paramsProject()
	h := newHarness(projects, nil)
	ctx := context.Background()
	_, err := h.store.LoadData(ctx, "p1")
	require.NoError(t, err)

	projects.saveErr = errBackend
	err = h.store.UpdateParam(ctx, "global", "pressure", 7.0)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 7.0, h.store.ModifiedParams()["global"]["pressure"])
}
