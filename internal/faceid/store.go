package faceid

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/faceauth/internal/models"
)

// Identity is one (owner, vector) pair yielded by an identity scan.
type Identity struct {
	ID        uuid.UUID
	Embedding []float32
}

// IdentityStore is the read-only view the matcher scans. Implementations skip
// rows whose embedding is missing or malformed instead of failing the scan.
// An indexed nearest-neighbour structure can sit behind this interface
// without changing the matcher.
type IdentityStore interface {
	ListEnrolledIdentities(ctx context.Context) iter.Seq2[Identity, error]
}

// EmployeeStore is the full identity persistence used by the orchestrators.
// Get methods return (nil, nil) when the record does not exist.
type EmployeeStore interface {
	IdentityStore

	// CreateEmployee inserts the record, embedding included, as one atomic
	// write. Email/CIN collisions return a *ProfileError with Conflict set.
	CreateEmployee(ctx context.Context, e *models.Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	// ReplaceFaceEmbedding swaps the whole vector. Returns ErrIdentityNotFound
	// for unknown ids.
	ReplaceFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, imageKey string) error
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
	CountEnrolled(ctx context.Context) (int, error)
}

// MemoryStore is an in-process EmployeeStore. Scans iterate in insertion order.
type MemoryStore struct {
	mu        sync.RWMutex
	dim       int
	order     []uuid.UUID
	employees map[uuid.UUID]models.Employee
}

// NewMemoryStore returns an empty store. dim > 0 makes scans skip vectors of
// any other length.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		dim:       dim,
		employees: make(map[uuid.UUID]models.Employee),
	}
}

func (s *MemoryStore) ListEnrolledIdentities(ctx context.Context) iter.Seq2[Identity, error] {
	return func(yield func(Identity, error) bool) {
		s.mu.RLock()
		snapshot := make([]Identity, 0, len(s.order))
		for _, id := range s.order {
			e := s.employees[id]
			if len(e.FaceEmbedding) == 0 || (s.dim > 0 && len(e.FaceEmbedding) != s.dim) {
				continue
			}
			snapshot = append(snapshot, Identity{ID: id, Embedding: e.FaceEmbedding})
		}
		s.mu.RUnlock()

		for _, ident := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(Identity{}, err)
				return
			}
			if !yield(ident, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) CreateEmployee(ctx context.Context, e *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.employees {
		if strings.EqualFold(existing.Email, e.Email) {
			return &ProfileError{Field: "email", Reason: "already exists", Conflict: true}
		}
		if e.CIN != "" && existing.CIN == e.CIN {
			return &ProfileError{Field: "cin", Reason: "already exists", Conflict: true}
		}
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	stored := *e
	stored.FaceEmbedding = slices.Clone(e.FaceEmbedding)
	s.employees[e.ID] = stored
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) GetEmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if strings.EqualFold(e.Email, email) {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Employee, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.employees[id])
	}
	return out, nil
}

func (s *MemoryStore) ReplaceFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, imageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return ErrIdentityNotFound
	}
	e.FaceEmbedding = slices.Clone(embedding)
	if imageKey != "" {
		e.ImageKey = imageKey
	}
	e.UpdatedAt = time.Now()
	s.employees[id] = e
	return nil
}

func (s *MemoryStore) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return ErrIdentityNotFound
	}
	delete(s.employees, id)
	s.order = slices.DeleteFunc(s.order, func(x uuid.UUID) bool { return x == id })
	return nil
}

func (s *MemoryStore) CountEnrolled(ctx context.Context) (int, error) {
	n := 0
	for _, err := range s.ListEnrolledIdentities(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Put stores a record as-is, bypassing uniqueness checks. Used to seed
// fixtures, including malformed embeddings.
func (s *MemoryStore) Put(e models.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, exists := s.employees[e.ID]; !exists {
		s.order = append(s.order, e.ID)
	}
	s.employees[e.ID] = e
}
