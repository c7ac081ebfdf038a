package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tricys-client/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "TRICYS_EVENTS"
	subjectPrefix = "events."
	// OriginHeader names the viewer process that published a message.
	OriginHeader = "Tricys-Origin"
)

// Publisher forwards client events to a NATS JetStream stream so external
// dashboards can follow a viewer session.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	origin string
}

// NewPublisher creates a new NATS publisher. origin is stamped on every
// message so a Subscriber in the same process can skip its own events.
func NewPublisher(url, origin string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPrefix + ">"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		// Don't fail hard here, maybe it already exists or NATS isn't ready
		log.Printf("Warn: Failed to ensure stream '%s': %v", StreamName, err)
	}

	return &Publisher{nc: nc, js: js, origin: origin}, nil
}

// Publish sends an event to NATS.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := subjectPrefix + event.EventType()
	msg := nats.NewMsg(subject)
	msg.Data = data
	if p.origin != "" {
		msg.Header.Set(OriginHeader, p.origin)
	}

	_, err = p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	return nil
}

// Forward republishes everything read from in until it closes. Playback
// ticks are skipped; they are too chatty for a durable stream.
func (p *Publisher) Forward(ctx context.Context, in <-chan events.Event) {
	for evt := range in {
		if evt.EventType() == events.TypePlaybackTick {
			continue
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := p.Publish(pubCtx, evt); err != nil {
			log.Printf("[WARN] %v", err)
		}
		cancel()
	}
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
