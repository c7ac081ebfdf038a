package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/events"
)

const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
	NotifyProcess = "process"
)

// Delivery actions pushed to viewers.
const (
	NotificationCreated = "created"
	NotificationUpdated = "updated"
	NotificationClosed  = "closed"
)

type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Duration  int64     `json:"duration_ms"`
	CreatedAt time.Time `json:"created_at"`

	timer *time.Timer
}

type NotifyOptions struct {
	Title   string
	Message string
	Type    string
	// Duration overrides the center's default auto-dismiss delay.
	Duration time.Duration
	// Persistent toasts stay until closed explicitly.
	Persistent bool
}

// NotificationDelivery defines how to push toast changes to viewers.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Deliver(action string, n Notification)
}

type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan events.Event, error)
}

// NotificationService is the toast queue: ordered entries, auto-dismiss
// timers and in-place updates for long running status messages.
type NotificationService struct {
	defaultDuration time.Duration
	delivery        NotificationDelivery
	logger          logger.ILogger

	mu     sync.Mutex
	nextID int64
	items  []*Notification
}

func NewNotificationService(defaultDuration time.Duration, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	if defaultDuration <= 0 {
		defaultDuration = 3 * time.Second
	}
	return &NotificationService{
		defaultDuration: defaultDuration,
		delivery:        delivery,
		logger:          log,
	}
}

// Notify queues a toast and returns its id.
func (s *NotificationService) Notify(opts NotifyOptions) int64 {
	typ := opts.Type
	if typ == "" {
		typ = NotifyInfo
	}
	title := opts.Title
	if title == "" {
		title = strings.ToUpper(typ)
	}
	d := opts.Duration
	if opts.Persistent {
		d = 0
	} else if d <= 0 {
		d = s.defaultDuration
	}

	s.mu.Lock()
	s.nextID++
	n := &Notification{
		ID:        s.nextID,
		Title:     title,
		Message:   opts.Message,
		Type:      typ,
		Duration:  d.Milliseconds(),
		CreatedAt: time.Now(),
	}
	if d > 0 {
		id := n.ID
		n.timer = time.AfterFunc(d, func() { s.Close(id) })
	}
	s.items = append(s.items, n)
	snapshot := *n
	s.mu.Unlock()

	s.deliver(NotificationCreated, snapshot)
	return snapshot.ID
}

// Toast is the short form of Notify with the default duration.
func (s *NotificationService) Toast(kind, title, message string) int64 {
	return s.Notify(NotifyOptions{Title: title, Message: message, Type: kind})
}

// Update rewrites title and/or message of a live toast. Nil fields are kept.
func (s *NotificationService) Update(id int64, title, message *string) bool {
	s.mu.Lock()
	n := s.find(id)
	if n == nil {
		s.mu.Unlock()
		return false
	}
	if title != nil {
		n.Title = *title
	}
	if message != nil {
		n.Message = *message
	}
	snapshot := *n
	s.mu.Unlock()

	s.deliver(NotificationUpdated, snapshot)
	return true
}

// Close removes a toast and stops its pending timer.
func (s *NotificationService) Close(id int64) bool {
	s.mu.Lock()
	idx := -1
	for i, n := range s.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	n := s.items[idx]
	if n.timer != nil {
		n.timer.Stop()
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	snapshot := *n
	s.mu.Unlock()

	s.deliver(NotificationClosed, snapshot)
	return true
}

// Items returns the queue in display order.
func (s *NotificationService) Items() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		c := *n
		c.timer = nil
		out = append(out, c)
	}
	return out
}

// Start turns triggered alerts on the event bus into warning toasts until
// ctx is cancelled.
func (s *NotificationService) Start(ctx context.Context, sub EventSubscriber) error {
	ch, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	go func() {
		for ev := range ch {
			s.handleEvent(ev)
		}
	}()
	s.logger.Info("NotificationService", "Notification service started", nil)
	return nil
}

func (s *NotificationService) handleEvent(ev events.Event) {
	if ev.EventType() != events.TypeAlertTriggered {
		return
	}
	p := ev.Payload()
	s.Notify(NotifyOptions{
		Title:   "ALERT TRIGGERED",
		Message: fmt.Sprintf("%v %v at t=%v (value %v)", p["id"], p["rule"], p["time"], p["value"]),
		Type:    NotifyWarning,
	})
}

func (s *NotificationService) find(id int64) *Notification {
	for _, n := range s.items {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (s *NotificationService) deliver(action string, n Notification) {
	if s.delivery == nil {
		return
	}
	n.timer = nil
	s.delivery.Deliver(action, n)
}
