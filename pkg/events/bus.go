package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const Topic = "tricys.events"

// Publisher is what the auth service and the simulation store emit through.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is the in-process event bus. Publishing never waits for subscribers.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return b.pubSub.Publish(Topic, message.NewMessage(watermill.NewUUID(), data))
}

// Subscribe returns a channel of decoded events that closes when ctx is done
// or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var evt BaseEvent
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				// Ack invalid messages to prevent infinite redelivery
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// Discard drops every event. Used when no bus is wired.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
