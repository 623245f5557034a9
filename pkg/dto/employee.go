package dto

import (
	"time"

	"github.com/google/uuid"
)

type EmployeeResponse struct {
	ID           uuid.UUID `json:"id"`
	CIN          string    `json:"cin,omitempty"`
	Name         string    `json:"name"`
	FamilyName   string    `json:"family_name,omitempty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Gender       string    `json:"gender,omitempty"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	FaceEnrolled bool      `json:"face_enrolled"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

type EmployeeListResponse struct {
	Employees []EmployeeResponse `json:"employees"`
	Total     int                `json:"total"`
}

type ReEnrollRequest struct {
	Image string `json:"image"`
}

type AuthEventResponse struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	Outcome    string     `json:"outcome"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Role       string     `json:"role,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type AuthEventListResponse struct {
	Events []AuthEventResponse `json:"events"`
	Total  int                 `json:"total"`
}

// WSEvent is one message on the live admin feed.
type WSEvent struct {
	Type string            `json:"type"`
	Data AuthEventResponse `json:"data"`
}
