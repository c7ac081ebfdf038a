package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tricys-client/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber follows events other viewer processes published to the stream.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	origin string
}

// NewSubscriber connects to NATS. Messages stamped with origin are skipped.
func NewSubscriber(url, origin string) (*Subscriber, error) {
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

	return &Subscriber{nc: nc, js: js, origin: origin}, nil
}

// Subscribe starts an ephemeral consumer on new messages and returns them as
// events until ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan events.Event, error) {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     subjectPrefix + ">",
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	out := make(chan events.Event, 64)
	// mu keeps the close of out from racing a delivery still in flight.
	var mu sync.Mutex
	closed := false
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if s.origin != "" && msg.Headers().Get(OriginHeader) == s.origin {
			msg.Ack()
			return
		}

		event, err := decode(msg.Subject(), msg.Data())
		if err != nil {
			log.Printf("Error unmarshalling event data: %v", err)
			msg.Term()
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if closed {
			msg.Nak()
			return
		}
		select {
		case out <- event:
			msg.Ack()
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		close(out)
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	log.Printf("Following %s on stream %s", subjectPrefix+">", StreamName)
	return out, nil
}

// Close closes the connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func decode(subject string, data []byte) (events.BaseEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, err
	}
	return events.BaseEvent{
		Type:       strings.TrimPrefix(subject, subjectPrefix),
		Data:       payload,
		OccurredAt: time.Now(),
	}, nil
}
