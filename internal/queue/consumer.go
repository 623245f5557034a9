package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/faceauth/internal/models"
)

// AuthEventHandler processes one decoded event. A returned error naks the
// message for redelivery.
type AuthEventHandler func(ctx context.Context, ev models.AuthEvent) error

type ConsumerOptions struct {
	// Name is the durable consumer name.
	Name    string
	Workers int
	// Ephemeral uses an ordered consumer private to this process that starts
	// at new messages and is never acknowledged; Name is ignored. Every
	// process sees every event and a restart does not replay history. Used by
	// the live feed.
	Ephemeral bool
}

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL, "faceauth-consumer")
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

var errMalformedEvent = errors.New("malformed auth event")

func decodeAuthEvent(data []byte) (models.AuthEvent, error) {
	var ev models.AuthEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if ev.Kind == "" || ev.Timestamp.IsZero() {
		return ev, fmt.Errorf("%w: missing kind or timestamp", errMalformedEvent)
	}
	return ev, nil
}

// ConsumeAuthEvents fetches from the AUTH stream and fans messages out to
// opts.Workers goroutines until ctx is done. Malformed payloads are
// terminated instead of redelivered.
func (c *Consumer) ConsumeAuthEvents(ctx context.Context, opts ConsumerOptions, handler AuthEventHandler) error {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	stream, err := c.js.Stream(ctx, AuthStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", AuthStreamName, err)
	}

	var cons jetstream.Consumer
	if opts.Ephemeral {
		cons, err = stream.OrderedConsumer(ctx, orderedConfig())
	} else {
		cons, err = stream.CreateOrUpdateConsumer(ctx, durableConfig(opts.Name))
	}
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", opts.Name, err)
	}
	ack := !opts.Ephemeral

	msgCh := make(chan jetstream.Msg, opts.Workers*2)

	go func() {
		defer close(msgCh)
		for ctx.Err() == nil {
			batch, err := cons.Fetch(opts.Workers*4, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch auth events", "consumer", opts.Name, "error", err)
				time.Sleep(time.Second)
				continue
			}
			for msg := range batch.Messages() {
				select {
				case msgCh <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for i := range opts.Workers {
		go func(workerID int) {
			for msg := range msgCh {
				handle(ctx, workerID, msg, handler, ack)
			}
		}(i)
	}

	slog.Info("auth event consumer started", "consumer", opts.Name, "workers", opts.Workers)
	return nil
}

func durableConfig(name string) jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Name:          name,
		Durable:       name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		FilterSubject: AuthSubjectBase + ".>",
	}
}

func orderedConfig() jetstream.OrderedConsumerConfig {
	return jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{AuthSubjectBase + ".>"},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	}
}

// handle runs one message through handler. With ack unset the message is
// never acknowledged, as ordered consumers require.
func handle(ctx context.Context, workerID int, msg jetstream.Msg, handler AuthEventHandler, ack bool) {
	ev, err := decodeAuthEvent(msg.Data())
	if err != nil {
		slog.Error("drop auth event", "worker", workerID, "subject", msg.Subject(), "error", err)
		if ack {
			_ = msg.Term()
		}
		return
	}
	if err := handler(ctx, ev); err != nil {
		slog.Error("process auth event", "worker", workerID, "kind", ev.Kind, "error", err)
		if ack {
			_ = msg.Nak()
		}
		return
	}
	if ack {
		_ = msg.Ack()
	}
}

func (c *Consumer) Ping() error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
