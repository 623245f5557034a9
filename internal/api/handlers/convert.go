package handlers

import (
	"time"

	"github.com/your-org/faceauth/internal/models"
	"github.com/your-org/faceauth/pkg/dto"
)

func toEmployeeResponse(e *models.Employee) dto.EmployeeResponse {
	resp := dto.EmployeeResponse{
		ID:           e.ID,
		CIN:          e.CIN,
		Name:         e.Name,
		FamilyName:   e.FamilyName,
		Email:        e.Email,
		Phone:        e.Phone,
		Gender:       e.Gender,
		Role:         string(e.Role),
		Status:       string(e.Status),
		FaceEnrolled: e.HasFace(),
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.ImageKey != "" {
		resp.PhotoURL = "/v1/employees/" + e.ID.String() + "/photo"
	}
	return resp
}

// ToAuthEventResponse is shared with the live feed relay.
func ToAuthEventResponse(ev models.AuthEvent) dto.AuthEventResponse {
	return dto.AuthEventResponse{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		Outcome:    ev.Outcome,
		IdentityID: ev.IdentityID,
		Role:       string(ev.Role),
		Timestamp:  ev.Timestamp,
	}
}
