package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tricys-client/pkg/events"
)

func TestDecodeTakesTypeFromSubject(t *testing.T) {
	ev, err := decode("events."+events.TypeProjectLoaded, []byte(`{"project_id":"7"}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeProjectLoaded, ev.EventType())
	assert.Equal(t, "7", ev.Payload()["project_id"])
	assert.False(t, ev.Timestamp().IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("events.X", []byte("not json"))
	assert.Error(t, err)
}
