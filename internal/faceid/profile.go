package faceid

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/your-org/faceauth/internal/models"
)

// Profile is the non-biometric part of an enrollment request. Field rules
// follow the employee directory schema.
type Profile struct {
	Name       string `json:"name" validate:"required,min=2,max=50"`
	FamilyName string `json:"family_name" validate:"omitempty,min=2,max=50"`
	Email      string `json:"email" validate:"required,max=255,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required,oneof=admin doctor nurse triage_nurse receptionnist ambulance_driver"`
	CIN        string `json:"cin" validate:"omitempty,len=8,numeric"`
	Gender     string `json:"gender" validate:"omitempty,oneof=Man Woman"`
}

// Normalize trims whitespace and lowercases the email, as the directory
// stores it.
func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.FamilyName = strings.TrimSpace(p.FamilyName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.CIN = strings.TrimSpace(p.CIN)
}

// privilegedRoles are granted only by an administrator, never on signup.
var privilegedRoles = []models.Role{models.RoleAdmin}

func isPrivilegedRole(role string) bool {
	return slices.Contains(privilegedRoles, models.Role(role))
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// validateProfile returns a *ProfileError for the first failing field.
func validateProfile(v *validator.Validate, p Profile) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ProfileError{Field: "profile", Reason: err.Error()}
	}

	fe := verrs[0]
	return &ProfileError{Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
