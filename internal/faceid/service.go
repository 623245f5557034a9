package faceid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/faceauth/internal/models"
	"github.com/your-org/faceauth/internal/observability"
)

// Extractor turns a still image into one face embedding. Implementations
// return ErrNoFaceDetected, ErrUnsupportedImageFormat or
// ErrExtractorUnavailable (wrapped) and release every resource they acquire
// before returning.
type Extractor interface {
	Extract(ctx context.Context, img Image) ([]float32, error)
}

// TokenIssuer signs a bearer token bound to an identity and its role.
type TokenIssuer interface {
	Issue(subject uuid.UUID, role string, ttl time.Duration) (token string, expiresAt time.Time, err error)
}

// ImageStore keeps the enrollment photo. Optional.
type ImageStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// EventPublisher relays committed auth state changes. Optional; publish
// failures are logged and never fail the request.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error
}

type Deps struct {
	Store     EmployeeStore
	Extractor Extractor
	Tokens    TokenIssuer
	Images    ImageStore
	Events    EventPublisher
	Matcher   MatcherConfig

	FaceTokenTTL     time.Duration
	PasswordTokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service runs the enrollment and login flows.
type Service struct {
	store     EmployeeStore
	matcher   *Matcher
	extractor Extractor
	tokens    TokenIssuer
	images    ImageStore
	events    EventPublisher
	validate  *validator.Validate

	faceTTL     time.Duration
	passwordTTL time.Duration
	bcryptCost  int
}

func NewService(d Deps) *Service {
	s := &Service{
		store:       d.Store,
		matcher:     NewMatcher(d.Store, d.Matcher),
		extractor:   d.Extractor,
		tokens:      d.Tokens,
		images:      d.Images,
		events:      d.Events,
		validate:    newValidator(),
		faceTTL:     d.FaceTokenTTL,
		passwordTTL: d.PasswordTokenTTL,
		bcryptCost:  d.BcryptCost,
	}
	if s.faceTTL == 0 {
		s.faceTTL = time.Hour
	}
	if s.passwordTTL == 0 {
		s.passwordTTL = 7 * 24 * time.Hour
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

func (s *Service) Matcher() *Matcher {
	return s.matcher
}

// EnrolledIdentity is the result of a successful enrollment.
type EnrolledIdentity struct {
	Employee  *models.Employee
	Token     string
	ExpiresAt time.Time
}

// LoginResult is everything a client may learn from a successful login.
type LoginResult struct {
	IdentityID uuid.UUID
	Name       string
	Email      string
	Role       models.Role
	Token      string
	ExpiresAt  time.Time
}

// Enroll is the public self-service signup. It validates the profile,
// extracts the face, rejects near-duplicates and persists the identity with
// its embedding in one write. Nothing is persisted when any step fails.
// Privileged roles cannot be self-assigned; use EnrollByAdmin.
func (s *Service) Enroll(ctx context.Context, imageData string, profile Profile) (*EnrolledIdentity, error) {
	return s.enrollObserved(ctx, imageData, profile, false)
}

// EnrollByAdmin is Enroll without the role restriction. The caller must
// already be authorized as an administrator.
func (s *Service) EnrollByAdmin(ctx context.Context, imageData string, profile Profile) (*EnrolledIdentity, error) {
	return s.enrollObserved(ctx, imageData, profile, true)
}

func (s *Service) enrollObserved(ctx context.Context, imageData string, profile Profile, privileged bool) (*EnrolledIdentity, error) {
	res, err := s.enroll(ctx, imageData, profile, privileged)
	outcome := Outcome(err)
	observability.Enrollments.WithLabelValues(outcome).Inc()
	if err != nil {
		slog.Info("enrollment rejected", "outcome", outcome, "error", err)
	}
	return res, err
}

func (s *Service) enroll(ctx context.Context, imageData string, profile Profile, privileged bool) (*EnrolledIdentity, error) {
	profile.Normalize()
	if err := validateProfile(s.validate, profile); err != nil {
		return nil, err
	}
	if !privileged && isPrivilegedRole(profile.Role) {
		return nil, &ProfileError{Field: "role", Reason: "cannot be self-assigned"}
	}

	// Cheap uniqueness pre-check before running inference. The unique index
	// still decides at insert time.
	existing, err := s.store.GetEmployeeByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, &ProfileError{Field: "email", Reason: "already exists", Conflict: true}
	}

	img, err := DecodeDataURL(imageData)
	if err != nil {
		return nil, err
	}

	embedding, err := s.extract(ctx, img)
	if err != nil {
		return nil, err
	}

	dup, err := s.matcher.CheckDuplicate(ctx, embedding)
	if err != nil {
		return nil, err
	}
	if dup.IsDuplicate {
		return nil, ErrFaceAlreadyEnrolled
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(profile.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	emp := &models.Employee{
		ID:            uuid.New(),
		CIN:           profile.CIN,
		Name:          profile.Name,
		FamilyName:    profile.FamilyName,
		Email:         profile.Email,
		Phone:         profile.Phone,
		Gender:        profile.Gender,
		Role:          models.Role(profile.Role),
		Status:        models.EmployeeStatusActive,
		PasswordHash:  hash,
		FaceEmbedding: embedding,
	}

	// Signed before the insert so a signing failure leaves nothing behind.
	token, exp, err := s.tokens.Issue(emp.ID, string(emp.Role), s.passwordTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.images != nil {
		key := enrollmentImageKey(emp.ID, img)
		if err := s.images.PutObject(ctx, key, img.Data, img.ContentType()); err != nil {
			return nil, fmt.Errorf("store enrollment image: %w", err)
		}
		emp.ImageKey = key
	}

	if err := s.store.CreateEmployee(ctx, emp); err != nil {
		s.discardImage(emp.ImageKey)
		return nil, err
	}

	slog.Info("identity enrolled", "identity_id", emp.ID, "role", emp.Role)
	s.publish(ctx, models.AuthEventEnrolled, "ok", &emp.ID, emp.Role)

	return &EnrolledIdentity{Employee: emp, Token: token, ExpiresAt: exp}, nil
}

// LoginByFace recognizes the face in imageData and issues a token for the
// matched identity. Every recognition failure is ErrNoMatchFound with no
// further detail.
func (s *Service) LoginByFace(ctx context.Context, imageData string) (*LoginResult, error) {
	res, err := s.loginByFace(ctx, imageData)
	outcome := Outcome(err)
	observability.FaceLogins.WithLabelValues(outcome).Inc()

	var id *uuid.UUID
	var role models.Role
	if res != nil {
		id, role = &res.IdentityID, res.Role
	}
	s.publish(ctx, models.AuthEventFaceLogin, outcome, id, role)
	return res, err
}

func (s *Service) loginByFace(ctx context.Context, imageData string) (*LoginResult, error) {
	img, err := DecodeDataURL(imageData)
	if err != nil {
		return nil, err
	}

	embedding, err := s.extract(ctx, img)
	if err != nil {
		return nil, err
	}

	match, err := s.matcher.MatchIdentity(ctx, embedding)
	if err != nil {
		if errors.Is(err, ErrNoMatchFound) {
			return nil, ErrNoMatchFound
		}
		return nil, err
	}

	emp, err := s.store.GetEmployee(ctx, *match.BestOwnerID)
	if err != nil {
		return nil, fmt.Errorf("load matched identity: %w", err)
	}
	if emp == nil {
		// Deleted between scan and lookup.
		return nil, ErrNoMatchFound
	}

	return s.login(emp, s.faceTTL)
}

// LoginByPassword is the non-biometric login. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) LoginByPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.loginByPassword(ctx, email, password)

	var id *uuid.UUID
	var role models.Role
	if res != nil {
		id, role = &res.IdentityID, res.Role
	}
	s.publish(ctx, models.AuthEventPasswordLogin, Outcome(err), id, role)
	return res, err
}

func (s *Service) loginByPassword(ctx context.Context, email, password string) (*LoginResult, error) {
	p := Profile{Email: email}
	p.Normalize()

	emp, err := s.store.GetEmployeeByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if emp == nil || len(emp.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(emp.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.login(emp, s.passwordTTL)
}

func (s *Service) login(emp *models.Employee, ttl time.Duration) (*LoginResult, error) {
	token, exp, err := s.tokens.Issue(emp.ID, string(emp.Role), ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{
		IdentityID: emp.ID,
		Name:       emp.Name,
		Email:      emp.Email,
		Role:       emp.Role,
		Token:      token,
		ExpiresAt:  exp,
	}, nil
}

// ReEnroll replaces an identity's whole embedding. The duplicate check
// ignores the identity's current vector.
func (s *Service) ReEnroll(ctx context.Context, id uuid.UUID, imageData string) (*models.Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if emp == nil {
		return nil, ErrIdentityNotFound
	}

	img, err := DecodeDataURL(imageData)
	if err != nil {
		return nil, err
	}
	embedding, err := s.extract(ctx, img)
	if err != nil {
		return nil, err
	}

	dup, err := s.matcher.CheckDuplicateExcept(ctx, embedding, id)
	if err != nil {
		return nil, err
	}
	if dup.IsDuplicate {
		return nil, ErrFaceAlreadyEnrolled
	}

	var key string
	if s.images != nil {
		key = enrollmentImageKey(id, img)
		if err := s.images.PutObject(ctx, key, img.Data, img.ContentType()); err != nil {
			return nil, fmt.Errorf("store enrollment image: %w", err)
		}
	}

	if err := s.store.ReplaceFaceEmbedding(ctx, id, embedding, key); err != nil {
		s.discardImage(key)
		return nil, err
	}
	if key != "" && emp.ImageKey != "" && emp.ImageKey != key {
		s.discardImage(emp.ImageKey)
	}

	emp.FaceEmbedding = embedding
	if key != "" {
		emp.ImageKey = key
	}
	s.publish(ctx, models.AuthEventReEnrolled, "ok", &id, emp.Role)
	return emp, nil
}

// DeleteIdentity removes the record, its embedding and its stored photo.
func (s *Service) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if emp == nil {
		return ErrIdentityNotFound
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.discardImage(emp.ImageKey)
	s.publish(ctx, models.AuthEventDeleted, "ok", &id, emp.Role)
	return nil
}

func (s *Service) extract(ctx context.Context, img Image) ([]float32, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: vision pipeline not initialized", ErrExtractorUnavailable)
	}
	return s.extractor.Extract(ctx, img)
}

// discardImage runs on a fresh context: the request context may already be
// cancelled, and the object must not outlive a failed write.
func (s *Service) discardImage(key string) {
	if s.images == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.images.DeleteObject(ctx, key); err != nil {
		slog.Warn("delete enrollment image", "key", key, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, kind models.AuthEventKind, outcome string, id *uuid.UUID, role models.Role) {
	if s.events == nil {
		return
	}
	ev := models.AuthEvent{
		ID:         uuid.New(),
		Kind:       kind,
		Outcome:    outcome,
		IdentityID: id,
		Role:       role,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.events.PublishAuthEvent(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("publish auth event", "kind", kind, "error", err)
	}
}

func enrollmentImageKey(id uuid.UUID, img Image) string {
	ext := "jpg"
	if img.Format == "png" {
		ext = "png"
	}
	return fmt.Sprintf("faces/%s/%s.%s", id, uuid.NewString(), ext)
}
