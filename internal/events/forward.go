package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Described events carry enough context to be forwarded off-process.
type Described interface {
	Event
	ArenaID() string
	RoundID() string
	Payload() any
}

// Envelope is the JSON body of a forwarded message.
type Envelope struct {
	Kind    string          `json:"kind"`
	Arena   string          `json:"arena"`
	Round   string          `json:"round,omitempty"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const topicPrefix = "minigame.arena."

// Topic returns the watermill topic carrying an arena's events.
func Topic(arenaID string) string {
	return topicPrefix + arenaID
}

// Forwarder publishes Described events to watermill, one topic per arena.
type Forwarder struct {
	pub    message.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewForwarder(pub message.Publisher, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{pub: pub, logger: logger, now: time.Now}
}

// Listener returns a bus listener that forwards every Described event.
// Other events are ignored.
func (f *Forwarder) Listener() Listener {
	return func(ctx context.Context, e Event) {
		d, ok := e.(Described)
		if !ok {
			return
		}
		if err := f.Forward(d); err != nil {
			f.logger.Warn("forwarding event", "kind", e.Kind(), "error", err)
		}
	}
}

// Forward publishes a single event.
func (f *Forwarder) Forward(e Described) error {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	body, err := json.Marshal(Envelope{
		Kind:    e.Kind(),
		Arena:   e.ArenaID(),
		Round:   e.RoundID(),
		At:      f.now().UTC(),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set("kind", e.Kind())
	if err := f.pub.Publish(Topic(e.ArenaID()), msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", Topic(e.ArenaID()), err)
	}
	return nil
}

// Decode parses a forwarded message body.
func Decode(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
