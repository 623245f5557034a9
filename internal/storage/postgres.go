package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/models"
)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
}

var _ faceid.EmployeeStore = (*PostgresStore)(nil)

// NewPostgresStore connects and pings. dim is the embedding length scans
// accept; other rows are skipped.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, dim int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, dim: dim}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const employeeColumns = `id, COALESCE(cin, ''), name, family_name, email, phone, gender, role, status,
	password_hash, face_embedding, image_key, created_at, updated_at`

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var e models.Employee
	var vec *pgvector.Vector
	err := row.Scan(&e.ID, &e.CIN, &e.Name, &e.FamilyName, &e.Email, &e.Phone, &e.Gender,
		&e.Role, &e.Status, &e.PasswordHash, &vec, &e.ImageKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		e.FaceEmbedding = vec.Slice()
	}
	return &e, nil
}

// --- Employees ---

// CreateEmployee writes the profile and its embedding in a single INSERT.
func (s *PostgresStore) CreateEmployee(ctx context.Context, e *models.Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.EmployeeStatusActive
	}

	var vec *pgvector.Vector
	if len(e.FaceEmbedding) > 0 {
		v := pgvector.NewVector(e.FaceEmbedding)
		vec = &v
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO employees (id, cin, name, family_name, email, phone, gender, role, status,
			password_hash, face_embedding, image_key)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		e.ID, e.CIN, e.Name, e.FamilyName, e.Email, e.Phone, e.Gender, e.Role, e.Status,
		e.PasswordHash, vec, e.ImageKey,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if pe := uniqueViolation(err); pe != nil {
			return pe
		}
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := scanEmployee(s.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) GetEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	e, err := scanEmployee(s.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE lower(email) = lower($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee by email: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// ReplaceFaceEmbedding swaps the vector in one UPDATE. An empty imageKey
// keeps the current one.
func (s *PostgresStore) ReplaceFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, imageKey string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE employees
		SET face_embedding = $2,
		    image_key = COALESCE(NULLIF($3, ''), image_key),
		    updated_at = NOW()
		WHERE id = $1`,
		id, pgvector.NewVector(embedding), imageKey)
	if err != nil {
		return fmt.Errorf("replace face embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return faceid.ErrIdentityNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return faceid.ErrIdentityNotFound
	}
	return nil
}

// --- Identity scan ---

// ListEnrolledIdentities streams (id, embedding) pairs with a server-side
// cursor in enrollment order. Rows that fail to decode or have the wrong
// length are logged and skipped.
func (s *PostgresStore) ListEnrolledIdentities(ctx context.Context) iter.Seq2[faceid.Identity, error] {
	return func(yield func(faceid.Identity, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT id, face_embedding FROM employees
			WHERE face_embedding IS NOT NULL
			ORDER BY created_at, id`)
		if err != nil {
			yield(faceid.Identity{}, fmt.Errorf("query identities: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id uuid.UUID
			var vec pgvector.Vector
			if err := rows.Scan(&id, &vec); err != nil {
				slog.Warn("skip unreadable face embedding", "error", err)
				continue
			}
			emb := vec.Slice()
			if len(emb) == 0 || (s.dim > 0 && len(emb) != s.dim) {
				slog.Warn("skip malformed face embedding", "identity_id", id, "dims", len(emb))
				continue
			}
			if !yield(faceid.Identity{ID: id, Embedding: emb}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(faceid.Identity{}, fmt.Errorf("iterate identities: %w", err))
		}
	}
}

func (s *PostgresStore) CountEnrolled(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM employees WHERE face_embedding IS NOT NULL`
	args := []any{}
	if s.dim > 0 {
		query += ` AND vector_dims(face_embedding) = $1`
		args = append(args, s.dim)
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return n, nil
}

// --- Auth events ---

// InsertAuthEvent stores ev. Redelivered events are ignored.
func (s *PostgresStore) InsertAuthEvent(ctx context.Context, ev models.AuthEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_events (id, kind, outcome, identity_id, role, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Kind, ev.Outcome, ev.IdentityID, ev.Role, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// ListAuthEvents returns the newest events first. A non-nil identityID
// restricts the result to that identity.
func (s *PostgresStore) ListAuthEvents(ctx context.Context, identityID *uuid.UUID, limit int) ([]models.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, outcome, identity_id, role, timestamp
		FROM auth_events
		WHERE $1::uuid IS NULL OR identity_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var ev models.AuthEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Outcome, &ev.IdentityID, &ev.Role, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// uniqueViolation maps a unique index violation on employees to a conflict
// on the offending field.
func uniqueViolation(err error) *faceid.ProfileError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	field := "profile"
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		field = "email"
	case strings.Contains(pgErr.ConstraintName, "cin"):
		field = "cin"
	case strings.Contains(pgErr.ConstraintName, "pkey"):
		field = "id"
	}
	return &faceid.ProfileError{Field: field, Reason: "already exists", Conflict: true}
}
