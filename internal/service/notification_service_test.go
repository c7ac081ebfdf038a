package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu      sync.Mutex
	actions []string
}

func (d *recordingDelivery) Deliver(action string, _ Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, action)
}

func (d *recordingDelivery) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.actions...)
}

func TestNotifyDefaults(t *testing.T) {
	svc := NewNotificationService(time.Hour, nil, logger.NewNopLogger())

	id1 := svc.Notify(NotifyOptions{Message: "saved", Type: NotifySuccess})
	id2 := svc.Notify(NotifyOptions{Message: "hello"})

	items := svc.Items()
	require.Len(t, items, 2)
	assert.Equal(t, id1+1, id2)
	assert.Equal(t, "SUCCESS", items[0].Title)
	assert.Equal(t, NotifyInfo, items[1].Type)
	assert.Equal(t, "INFO", items[1].Title)
	assert.Equal(t, time.Hour.Milliseconds(), items[0].Duration)
}

func TestNotifyAutoDismiss(t *testing.T) {
	svc := NewNotificationService(time.Hour, nil, logger.NewNopLogger())

	svc.Notify(NotifyOptions{Message: "short", Duration: 10 * time.Millisecond})
	svc.Notify(NotifyOptions{Message: "sticky", Persistent: true})

	assert.Eventually(t, func() bool { return len(svc.Items()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sticky", svc.Items()[0].Message)
	assert.Zero(t, svc.Items()[0].Duration)
}

func TestUpdateAndClose(t *testing.T) {
	delivery := &recordingDelivery{}
	svc := NewNotificationService(time.Hour, delivery, logger.NewNopLogger())

	id := svc.Notify(NotifyOptions{Title: "SIMULATION", Message: "0%", Type: NotifyProcess, Persistent: true})
	msg := "50%"
	assert.True(t, svc.Update(id, nil, &msg))
	assert.Equal(t, "50%", svc.Items()[0].Message)
	assert.Equal(t, "SIMULATION", svc.Items()[0].Title)

	assert.True(t, svc.Close(id))
	assert.False(t, svc.Close(id))
	assert.False(t, svc.Update(id, nil, &msg))
	assert.Empty(t, svc.Items())
	assert.Equal(t, []string{NotificationCreated, NotificationUpdated, NotificationClosed}, delivery.snapshot())
}

func TestManualCloseStopsTimer(t *testing.T) {
	delivery := &recordingDelivery{}
	svc := NewNotificationService(time.Hour, delivery, logger.NewNopLogger())

	id := svc.Notify(NotifyOptions{Message: "x", Duration: 20 * time.Millisecond})
	require.True(t, svc.Close(id))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, []string{NotificationCreated, NotificationClosed}, delivery.snapshot())
}

func TestAlertEventRaisesWarning(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	svc := NewNotificationService(time.Hour, nil, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx, bus))

	require.NoError(t, bus.Publish(ctx, events.New(events.TypePlaybackTick, map[string]interface{}{"time": 1.0})))
	require.NoError(t, bus.Publish(ctx, events.New(events.TypeAlertTriggered, map[string]interface{}{
		"id": "sds", "rule": "> 10", "time": "1.00", "value": "15.0000",
	})))

	assert.Eventually(t, func() bool { return len(svc.Items()) == 1 }, time.Second, 5*time.Millisecond)
	item := svc.Items()[0]
	assert.Equal(t, NotifyWarning, item.Type)
	assert.Equal(t, "ALERT TRIGGERED", item.Title)
	assert.Contains(t, item.Message, "sds")
}
