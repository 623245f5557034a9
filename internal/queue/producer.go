package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/faceauth/internal/models"
)

const (
	AuthStreamName  = "AUTH"
	AuthSubjectBase = "auth"
)

// AuthStreamConfig keeps a week of auth events for the auditor and the
// live feed. Message ids deduplicate retried publishes.
var AuthStreamConfig = jetstream.StreamConfig{
	Name:        AuthStreamName,
	Subjects:    []string{AuthSubjectBase + ".>"},
	Retention:   jetstream.LimitsPolicy,
	MaxAge:      7 * 24 * time.Hour,
	MaxMsgs:     1_000_000,
	Storage:     jetstream.FileStorage,
	Discard:     jetstream.DiscardOld,
	Duplicates:  2 * time.Minute,
	Description: "Identity enrollment and login events",
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func connect(natsURL, name string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL, "faceauth-producer")
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the AUTH stream if it doesn't exist. Retries up to
// 30 times, 1s apart, while NATS starts.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	const maxAttempts = 30
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = p.js.CreateOrUpdateStream(opCtx, AuthStreamConfig)
		cancel()
		if err == nil {
			slog.Info("ensured nats stream", "name", AuthStreamName)
			return nil
		}
		slog.Warn("ensure nats stream (retrying)", "name", AuthStreamName, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("create stream %s: %w (after %d attempts)", AuthStreamName, err, maxAttempts)
}

// Subject returns the subject an event of the given kind is published on.
func Subject(kind models.AuthEventKind) string {
	return AuthSubjectBase + "." + string(kind)
}

// PublishAuthEvent implements faceid.EventPublisher.
func (p *Producer) PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := p.js.Publish(ctx, Subject(ev.Kind), payload, jetstream.WithMsgID(ev.ID.String())); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Pending returns the number of messages held in the AUTH stream.
func (p *Producer) Pending(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, AuthStreamName)
	if err != nil {
		return 0, fmt.Errorf("get stream %s: %w", AuthStreamName, err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("stream info: %w", err)
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
