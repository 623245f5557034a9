package models

import (
	"time"

	"github.com/google/uuid"
)

type AuthEventKind string

const (
	AuthEventEnrolled      AuthEventKind = "identity.enrolled"
	AuthEventFaceLogin     AuthEventKind = "identity.login.face"
	AuthEventPasswordLogin AuthEventKind = "identity.login.password"
	AuthEventReEnrolled    AuthEventKind = "identity.reenrolled"
	AuthEventDeleted       AuthEventKind = "identity.deleted"
)

// AuthEvent is published on the AUTH stream after a state change has been
// committed. It never carries match distances or near-miss identities.
type AuthEvent struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Kind       AuthEventKind `json:"kind" db:"kind"`
	Outcome    string        `json:"outcome" db:"outcome"`
	IdentityID *uuid.UUID    `json:"identity_id,omitempty" db:"identity_id"`
	Role       Role          `json:"role,omitempty" db:"role"`
	Timestamp  time.Time     `json:"timestamp" db:"timestamp"`
}
