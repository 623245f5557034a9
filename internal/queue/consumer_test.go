package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/faceauth/internal/models"
)

type fakeMsg struct {
	jetstream.Msg
	data                 []byte
	acked, naked, termed bool
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "auth.test" }
func (m *fakeMsg) Ack() error      { m.acked = true; return nil }
func (m *fakeMsg) Nak() error      { m.naked = true; return nil }
func (m *fakeMsg) Term() error     { m.termed = true; return nil }

func validEvent(t *testing.T) []byte {
	t.Helper()
	id := uuid.New()
	data, err := json.Marshal(models.AuthEvent{
		ID:         uuid.New(),
		Kind:       models.AuthEventFaceLogin,
		Outcome:    "ok",
		IdentityID: &id,
		Role:       models.RoleDoctor,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSubject(t *testing.T) {
	if got := Subject(models.AuthEventEnrolled); got != "auth.identity.enrolled" {
		t.Errorf("expected auth.identity.enrolled, got %s", got)
	}
}

func TestDecodeAuthEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"valid", validEvent(t), false},
		{"not json", []byte("{"), true},
		{"missing kind", []byte(`{"id":"` + uuid.NewString() + `","timestamp":"2026-01-02T03:04:05Z"}`), true},
		{"missing timestamp", []byte(`{"kind":"identity.enrolled"}`), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAuthEvent(tt.data)
			if tt.wantErr != (err != nil) {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, errMalformedEvent) {
				t.Errorf("expected errMalformedEvent, got %v", err)
			}
		})
	}
}

func TestHandleAcknowledgement(t *testing.T) {
	ok := func(ctx context.Context, ev models.AuthEvent) error { return nil }
	fail := func(ctx context.Context, ev models.AuthEvent) error { return errors.New("db down") }

	tests := []struct {
		name    string
		data    []byte
		handler AuthEventHandler
		want    string
	}{
		{"handled", validEvent(t), ok, "ack"},
		{"handler error", validEvent(t), fail, "nak"},
		{"poison", []byte("garbage"), ok, "term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &fakeMsg{data: tt.data}
			handle(context.Background(), 0, msg, tt.handler, true)

			got := ""
			switch {
			case msg.acked:
				got = "ack"
			case msg.naked:
				got = "nak"
			case msg.termed:
				got = "term"
			}
			if got != tt.want {
				t.Errorf("expected %s, got %q", tt.want, got)
			}
		})
	}
}

func TestHandleWithoutAck(t *testing.T) {
	ok := func(ctx context.Context, ev models.AuthEvent) error { return nil }
	fail := func(ctx context.Context, ev models.AuthEvent) error { return errors.New("hub gone") }

	for _, msg := range []*fakeMsg{{data: validEvent(t)}, {data: []byte("garbage")}} {
		for _, h := range []AuthEventHandler{ok, fail} {
			handle(context.Background(), 0, msg, h, false)
			if msg.acked || msg.naked || msg.termed {
				t.Errorf("ordered consumer messages must not be acknowledged: %+v", msg)
			}
		}
	}
}

func TestConsumerConfigs(t *testing.T) {
	durable := durableConfig("auditor")
	if durable.Durable != "auditor" || durable.AckPolicy != jetstream.AckExplicitPolicy {
		t.Errorf("unexpected durable config %+v", durable)
	}
	if durable.DeliverPolicy != jetstream.DeliverAllPolicy {
		t.Errorf("durable consumer must start at the stream head, got %v", durable.DeliverPolicy)
	}

	ordered := orderedConfig()
	if ordered.DeliverPolicy != jetstream.DeliverNewPolicy {
		t.Errorf("live feed must start at new messages, got %v", ordered.DeliverPolicy)
	}
	if len(ordered.FilterSubjects) != 1 || ordered.FilterSubjects[0] != "auth.>" {
		t.Errorf("unexpected filter %v", ordered.FilterSubjects)
	}
}
