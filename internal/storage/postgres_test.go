//go:build integration

package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/models"
)

const testDim = 4

func setupTestContainer(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "faceauth",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		URL:      fmt.Sprintf("postgres://test:test@%s:%s/faceauth?sslmode=disable", host, port.Port()),
		MaxConns: 5,
	}
	store, err := NewPostgresStore(ctx, cfg, testDim)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("connect: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		container.Terminate(ctx)
		t.Fatalf("migrate: %v", err)
	}

	return store, func() {
		store.Close()
		container.Terminate(ctx)
	}
}

func employee(email string, emb []float32) *models.Employee {
	return &models.Employee{
		Name:          "Test",
		Email:         email,
		Phone:         "+21620000000",
		Role:          models.RoleNurse,
		PasswordHash:  []byte("hash"),
		FaceEmbedding: emb,
	}
}

func TestPostgresStore(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	if store == nil {
		return
	}
	defer cleanup()
	ctx := context.Background()

	t.Run("migrate is idempotent", func(t *testing.T) {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("second migrate: %v", err)
		}
		applied, err := store.AppliedMigrations(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(applied) != 2 {
			t.Errorf("expected 2 applied migrations, got %v", applied)
		}
	})

	alice := employee("alice@hospital.tn", []float32{1, 0, 0, 0})
	alice.CIN = "01234567"
	bob := employee("bob@hospital.tn", []float32{0, 1, 0, 0})
	nofa := employee("nofa@hospital.tn", nil)

	t.Run("create", func(t *testing.T) {
		for _, e := range []*models.Employee{alice, bob, nofa} {
			if err := store.CreateEmployee(ctx, e); err != nil {
				t.Fatalf("create %s: %v", e.Email, err)
			}
			if e.ID == uuid.Nil || e.CreatedAt.IsZero() {
				t.Errorf("expected id and timestamps to be set for %s", e.Email)
			}
		}
	})

	t.Run("unique email is case-insensitive", func(t *testing.T) {
		err := store.CreateEmployee(ctx, employee("ALICE@hospital.tn", nil))
		var pe *faceid.ProfileError
		if !errors.As(err, &pe) || !pe.Conflict || pe.Field != "email" {
			t.Errorf("expected email conflict, got %v", err)
		}
	})

	t.Run("unique cin", func(t *testing.T) {
		e := employee("carol@hospital.tn", nil)
		e.CIN = "01234567"
		err := store.CreateEmployee(ctx, e)
		var pe *faceid.ProfileError
		if !errors.As(err, &pe) || pe.Field != "cin" {
			t.Errorf("expected cin conflict, got %v", err)
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.GetEmployee(ctx, alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Email != alice.Email || got.CIN != alice.CIN || len(got.FaceEmbedding) != testDim {
			t.Errorf("unexpected employee %+v", got)
		}

		byEmail, err := store.GetEmployeeByEmail(ctx, "Bob@Hospital.tn")
		if err != nil || byEmail == nil || byEmail.ID != bob.ID {
			t.Errorf("expected bob by email, got %v, %v", byEmail, err)
		}

		missing, err := store.GetEmployee(ctx, uuid.New())
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for unknown id, got %v, %v", missing, err)
		}
	})

	t.Run("scan skips unenrolled and malformed", func(t *testing.T) {
		odd := employee("odd@hospital.tn", []float32{1, 2})
		if err := store.CreateEmployee(ctx, odd); err != nil {
			t.Fatal(err)
		}

		var ids []uuid.UUID
		for ident, err := range store.ListEnrolledIdentities(ctx) {
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			ids = append(ids, ident.ID)
		}
		if len(ids) != 2 || ids[0] != alice.ID || ids[1] != bob.ID {
			t.Errorf("expected [alice bob] in enrollment order, got %v", ids)
		}

		n, err := store.CountEnrolled(ctx)
		if err != nil || n != 2 {
			t.Errorf("expected 2 enrolled, got %d, %v", n, err)
		}
	})

	t.Run("matcher over postgres", func(t *testing.T) {
		m := faceid.NewMatcher(store, faceid.MatcherConfig{EmbeddingDim: testDim})
		res, err := m.MatchIdentity(ctx, []float32{0.05, 1, 0, 0})
		if err != nil {
			t.Fatal(err)
		}
		if *res.BestOwnerID != bob.ID {
			t.Errorf("expected bob, got %s", *res.BestOwnerID)
		}
	})

	t.Run("replace embedding", func(t *testing.T) {
		if err := store.ReplaceFaceEmbedding(ctx, nofa.ID, []float32{0, 0, 1, 0}, "faces/new.jpg"); err != nil {
			t.Fatal(err)
		}
		got, _ := store.GetEmployee(ctx, nofa.ID)
		if !got.HasFace() || got.ImageKey != "faces/new.jpg" {
			t.Errorf("expected face and image key, got %+v", got)
		}
		if err := store.ReplaceFaceEmbedding(ctx, uuid.New(), []float32{0, 0, 1, 0}, ""); !errors.Is(err, faceid.ErrIdentityNotFound) {
			t.Errorf("expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteEmployee(ctx, bob.ID); err != nil {
			t.Fatal(err)
		}
		if err := store.DeleteEmployee(ctx, bob.ID); !errors.Is(err, faceid.ErrIdentityNotFound) {
			t.Errorf("expected ErrIdentityNotFound, got %v", err)
		}
	})

	t.Run("auth events", func(t *testing.T) {
		ev := models.AuthEvent{
			ID:         uuid.New(),
			Kind:       models.AuthEventFaceLogin,
			Outcome:    "ok",
			IdentityID: &alice.ID,
			Role:       models.RoleNurse,
			Timestamp:  time.Now().UTC(),
		}
		for range 2 {
			if err := store.InsertAuthEvent(ctx, ev); err != nil {
				t.Fatal(err)
			}
		}
		anon := models.AuthEvent{ID: uuid.New(), Kind: models.AuthEventFaceLogin, Outcome: "no_match", Timestamp: time.Now().UTC()}
		if err := store.InsertAuthEvent(ctx, anon); err != nil {
			t.Fatal(err)
		}

		all, err := store.ListAuthEvents(ctx, nil, 10)
		if err != nil || len(all) != 2 {
			t.Errorf("expected 2 events, got %d, %v", len(all), err)
		}
		mine, err := store.ListAuthEvents(ctx, &alice.ID, 10)
		if err != nil || len(mine) != 1 || mine[0].ID != ev.ID {
			t.Errorf("expected alice's event, got %v, %v", mine, err)
		}
	})
}
