package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin           Role = "admin"
	RoleDoctor          Role = "doctor"
	RoleNurse           Role = "nurse"
	RoleTriageNurse     Role = "triage_nurse"
	RoleReceptionist    Role = "receptionnist"
	RoleAmbulanceDriver Role = "ambulance_driver"
)

type EmployeeStatus string

const (
	EmployeeStatusActive  EmployeeStatus = "active"
	EmployeeStatusOnLeave EmployeeStatus = "on_leave"
	EmployeeStatusRetired EmployeeStatus = "retired"
)

// Employee is the identity record. FaceEmbedding is either empty or holds
// exactly one vector of the configured dimension.
type Employee struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	CIN           string         `json:"cin,omitempty" db:"cin"`
	Name          string         `json:"name" db:"name"`
	FamilyName    string         `json:"family_name,omitempty" db:"family_name"`
	Email         string         `json:"email" db:"email"`
	Phone         string         `json:"phone" db:"phone"`
	Gender        string         `json:"gender,omitempty" db:"gender"`
	Role          Role           `json:"role" db:"role"`
	Status        EmployeeStatus `json:"status" db:"status"`
	PasswordHash  []byte         `json:"-" db:"password_hash"`
	FaceEmbedding []float32      `json:"-" db:"face_embedding"`
	ImageKey      string         `json:"image_key,omitempty" db:"image_key"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

func (e *Employee) HasFace() bool {
	return len(e.FaceEmbedding) > 0
}
