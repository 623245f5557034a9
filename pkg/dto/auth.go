package dto

import (
	"time"

	"github.com/google/uuid"
)

// SignupRequest enrolls a new employee. Image is a data URL
// ("data:image/jpeg;base64,..." or png).
type SignupRequest struct {
	Image      string `json:"image"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	CIN        string `json:"cin"`
	Gender     string `json:"gender"`
}

type FaceLoginRequest struct {
	Image string `json:"image"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  EmployeeResponse `json:"employee"`
}

// LoginResponse carries only what the client needs after a login. It never
// includes match distances.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
