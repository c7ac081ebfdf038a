package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DialogConfirm = "confirm"
	DialogAlert   = "alert"
)

var (
	ErrNoPendingDialog = errors.New("no dialog pending")
	ErrStaleDialog     = errors.New("dialog already answered or superseded")
)

type Prompt struct {
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ConfirmText string    `json:"confirm_text,omitempty"`
	CancelText  string    `json:"cancel_text,omitempty"`
	OpenedAt    time.Time `json:"opened_at"`
}

// DialogDelivery pushes the mounted prompt to viewers; nil means the slot
// was emptied.
type DialogDelivery interface {
	DeliverDialog(p *Prompt)
}

type pendingDialog struct {
	prompt Prompt
	reply  chan bool
}

// DialogService is a single-slot request/response channel. Only one prompt
// is mounted at a time; opening another resolves the current one as false.
type DialogService struct {
	delivery DialogDelivery

	mu      sync.Mutex
	pending *pendingDialog
}

func NewDialogService(delivery DialogDelivery) *DialogService {
	return &DialogService{delivery: delivery}
}

// Confirm blocks until the prompt is answered, superseded or ctx ends.
func (s *DialogService) Confirm(ctx context.Context, message, title string) (bool, error) {
	if title == "" {
		title = "Confirmation"
	}
	return s.open(ctx, Prompt{Kind: DialogConfirm, Title: title, Message: message})
}

// Alert blocks until the notice is acknowledged.
func (s *DialogService) Alert(ctx context.Context, message, title string) error {
	if title == "" {
		title = "System Notice"
	}
	_, err := s.open(ctx, Prompt{Kind: DialogAlert, Title: title, Message: message})
	return err
}

func (s *DialogService) Pending() (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Prompt{}, false
	}
	return s.pending.prompt, true
}

// Respond answers the mounted prompt. An empty id answers whatever is
// mounted.
func (s *DialogService) Respond(id string, confirmed bool) error {
	s.mu.Lock()
	p := s.pending
	if p == nil {
		s.mu.Unlock()
		return ErrNoPendingDialog
	}
	if id != "" && p.prompt.ID != id {
		s.mu.Unlock()
		return ErrStaleDialog
	}
	s.pending = nil
	s.mu.Unlock()

	p.reply <- confirmed
	s.deliver(nil)
	return nil
}

func (s *DialogService) open(ctx context.Context, prompt Prompt) (bool, error) {
	prompt.ID = uuid.NewString()
	prompt.OpenedAt = time.Now()
	p := &pendingDialog{prompt: prompt, reply: make(chan bool, 1)}

	s.mu.Lock()
	prev := s.pending
	s.pending = p
	s.mu.Unlock()

	if prev != nil {
		prev.reply <- false
	}
	s.deliver(&p.prompt)

	select {
	case ok := <-p.reply:
		return ok, nil
	case <-ctx.Done():
		s.mu.Lock()
		mounted := s.pending == p
		if mounted {
			s.pending = nil
		}
		s.mu.Unlock()
		if mounted {
			s.deliver(nil)
		}
		return false, ctx.Err()
	}
}

func (s *DialogService) deliver(p *Prompt) {
	if s.delivery != nil {
		s.delivery.DeliverDialog(p)
	}
}
