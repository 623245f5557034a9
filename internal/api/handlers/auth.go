package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceauth/internal/auth"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/pkg/dto"
)

// maxImageBody bounds JSON bodies that carry a base64 image.
const maxImageBody = 10 << 20

type AuthHandler struct {
	svc   *faceid.Service
	store faceid.EmployeeStore
}

func NewAuthHandler(svc *faceid.Service, store faceid.EmployeeStore) *AuthHandler {
	return &AuthHandler{svc: svc, store: store}
}

func limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBody)
}

// Signup enrolls a new employee with a face photo and returns a token.
func (h *AuthHandler) Signup(c *gin.Context) {
	limitBody(c)
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.svc.Enroll(c.Request.Context(), req.Image, toProfile(req))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TokenResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Employee:  toEmployeeResponse(res.Employee),
	})
}

// LoginFace recognizes the caller from a single photo.
func (h *AuthHandler) LoginFace(c *gin.Context) {
	limitBody(c)
	var req dto.FaceLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.svc.LoginByFace(c.Request.Context(), req.Image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

func (h *AuthHandler) LoginPassword(c *gin.Context) {
	var req dto.PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
		return
	}

	res, err := h.svc.LoginByPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoginResponse(res))
}

// Me returns the caller's own record, including whether a face is enrolled.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing bearer token"})
		return
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid token"})
		return
	}

	emp, err := h.store.GetEmployee(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if emp == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: faceid.ErrIdentityNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(emp))
}

func toProfile(req dto.SignupRequest) faceid.Profile {
	return faceid.Profile{
		Name:       req.Name,
		FamilyName: req.FamilyName,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		Role:       req.Role,
		CIN:        req.CIN,
		Gender:     req.Gender,
	}
}

func toLoginResponse(res *faceid.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		ID:        res.IdentityID,
		Name:      res.Name,
		Email:     res.Email,
		Role:      string(res.Role),
	}
}
