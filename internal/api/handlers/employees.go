package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/models"
	"github.com/your-org/faceauth/pkg/dto"
)

// PhotoReader loads a stored enrollment photo.
type PhotoReader interface {
	GetObject(ctx context.Context, key string) ([]byte, string, error)
}

// EventLister reads persisted auth events, newest first.
type EventLister interface {
	ListAuthEvents(ctx context.Context, identityID *uuid.UUID, limit int) ([]models.AuthEvent, error)
}

type EmployeeHandler struct {
	svc    *faceid.Service
	store  faceid.EmployeeStore
	photos PhotoReader
	events EventLister
}

// NewEmployeeHandler builds the admin handler. photos and events may be nil;
// their endpoints then answer 404.
func NewEmployeeHandler(svc *faceid.Service, store faceid.EmployeeStore, photos PhotoReader, events EventLister) *EmployeeHandler {
	return &EmployeeHandler{svc: svc, store: store, photos: photos, events: events}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid employee id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *EmployeeHandler) load(c *gin.Context) (*models.Employee, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	emp, err := h.store.GetEmployee(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if emp == nil {
		writeError(c, faceid.ErrIdentityNotFound)
		return nil, false
	}
	return emp, true
}

func (h *EmployeeHandler) List(c *gin.Context) {
	employees, err := h.store.ListEmployees(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	role := c.Query("role")
	resp := make([]dto.EmployeeResponse, 0, len(employees))
	for i := range employees {
		if role != "" && string(employees[i].Role) != role {
			continue
		}
		resp = append(resp, toEmployeeResponse(&employees[i]))
	}
	c.JSON(http.StatusOK, dto.EmployeeListResponse{Employees: resp, Total: len(resp)})
}

// Create enrolls an employee with any role, admin included. No token is
// returned; the employee logs in separately.
func (h *EmployeeHandler) Create(c *gin.Context) {
	limitBody(c)
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.svc.EnrollByAdmin(c.Request.Context(), req.Image, toProfile(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEmployeeResponse(res.Employee))
}

func (h *EmployeeHandler) Get(c *gin.Context) {
	emp, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(emp))
}

func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteIdentity(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReEnroll replaces the employee's face embedding from a new photo.
func (h *EmployeeHandler) ReEnroll(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limitBody(c)
	var req dto.ReEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	emp, err := h.svc.ReEnroll(c.Request.Context(), id, req.Image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(emp))
}

// Photo streams the stored enrollment photo.
func (h *EmployeeHandler) Photo(c *gin.Context) {
	emp, ok := h.load(c)
	if !ok {
		return
	}
	if h.photos == nil || emp.ImageKey == "" {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "photo not found"})
		return
	}

	data, contentType, err := h.photos.GetObject(c.Request.Context(), emp.ImageKey)
	if err != nil {
		writeError(c, err)
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Data(http.StatusOK, contentType, data)
}

const maxEventLimit = 500

// Events lists the employee's recent auth events.
func (h *EmployeeHandler) Events(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if h.events == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "event log not available"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	switch {
	case err != nil || limit <= 0:
		limit = 50
	case limit > maxEventLimit:
		limit = maxEventLimit
	}

	events, err := h.events.ListAuthEvents(c.Request.Context(), &id, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]dto.AuthEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, ToAuthEventResponse(ev))
	}
	c.JSON(http.StatusOK, dto.AuthEventListResponse{Events: resp, Total: len(resp)})
}
