package faceid

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func validProfile() Profile {
	return Profile{
		Name:       "Amira",
		FamilyName: "Ben Salah",
		Email:      "amira@hospital.tn",
		Phone:      "+21620123456",
		Password:   "s3cret-pass",
		Role:       "nurse",
		CIN:        "01234567",
		Gender:     "Woman",
	}
}

func TestValidateProfile(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name      string
		mutate    func(*Profile)
		wantField string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"minimal", func(p *Profile) { p.FamilyName, p.CIN, p.Gender = "", "", "" }, ""},
		{"missing name", func(p *Profile) { p.Name = "" }, "name"},
		{"short name", func(p *Profile) { p.Name = "A" }, "name"},
		{"bad email", func(p *Profile) { p.Email = "not-an-email" }, "email"},
		{"long email", func(p *Profile) { p.Email = strings.Repeat("a", 250) + "@hospital.tn" }, "email"},
		{"bad phone", func(p *Profile) { p.Phone = "0123" }, "phone"},
		{"phone letters", func(p *Profile) { p.Phone = "+216abc" }, "phone"},
		{"short password", func(p *Profile) { p.Password = "short" }, "password"},
		{"unknown role", func(p *Profile) { p.Role = "surgeon" }, "role"},
		{"receptionist spelling", func(p *Profile) { p.Role = "receptionnist" }, ""},
		{"cin length", func(p *Profile) { p.CIN = "123" }, "cin"},
		{"cin letters", func(p *Profile) { p.CIN = "1234567a" }, "cin"},
		{"gender", func(p *Profile) { p.Gender = "other" }, "gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			err := validateProfile(v, p)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var pe *ProfileError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ProfileError, got %v", err)
			}
			if pe.Field != tt.wantField {
				t.Errorf("expected field %q, got %q (%s)", tt.wantField, pe.Field, pe.Reason)
			}
			if pe.Conflict {
				t.Error("validation failures are not conflicts")
			}
		})
	}
}

func TestProfileNormalize(t *testing.T) {
	p := Profile{Name: "  Sami ", Email: " Sami@Hospital.TN ", Phone: " +21698000000 "}
	p.Normalize()

	if p.Name != "Sami" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
	if p.Email != "sami@hospital.tn" {
		t.Errorf("expected lowercased email, got %q", p.Email)
	}
	if p.Phone != "+21698000000" {
		t.Errorf("expected trimmed phone, got %q", p.Phone)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("decode: %w", ErrUnsupportedImageFormat), "unsupported_image"},
		{ErrNoFaceDetected, "no_face"},
		{ErrFaceAlreadyEnrolled, "duplicate"},
		{ErrNoMatchFound, "no_match"},
		{fmt.Errorf("%w: timeout", ErrExtractorUnavailable), "extractor_unavailable"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{&ProfileError{Field: "email", Reason: "already exists", Conflict: true}, "profile_conflict"},
		{&ProfileError{Field: "name", Reason: "is required"}, "invalid_profile"},
		{errors.New("db down"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v): expected %q, got %q", tt.err, tt.want, got)
		}
	}
}
