package faceid

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/your-org/faceauth/internal/observability"
)

var inf = math.Inf(1)

const (
	DefaultDuplicateThreshold   = 0.4
	DefaultRecognitionThreshold = 0.4
)

type MatcherConfig struct {
	// EmbeddingDim is the expected probe length. Zero disables the check.
	EmbeddingDim         int
	DuplicateThreshold   float64
	RecognitionThreshold float64
}

// MatchResult is transient and server-side only. BestDistance is +Inf and
// BestOwnerID nil when the store holds no comparable vector.
type MatchResult struct {
	BestOwnerID  *uuid.UUID
	BestDistance float64
	IsMatch      bool
	IsDuplicate  bool
}

// Matcher answers duplicate and recognition questions by a full linear scan
// of the identity store. It holds no state of its own.
type Matcher struct {
	store IdentityStore
	cfg   MatcherConfig
}

func NewMatcher(store IdentityStore, cfg MatcherConfig) *Matcher {
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if cfg.RecognitionThreshold <= 0 {
		cfg.RecognitionThreshold = DefaultRecognitionThreshold
	}
	return &Matcher{store: store, cfg: cfg}
}

// CheckDuplicate reports whether probe lies strictly within the duplicate
// threshold of any enrolled identity. An empty store is never a duplicate.
func (m *Matcher) CheckDuplicate(ctx context.Context, probe []float32) (MatchResult, error) {
	return m.checkDuplicate(ctx, probe, uuid.Nil)
}

// CheckDuplicateExcept is CheckDuplicate ignoring one identity's own vector,
// for re-enrollment.
func (m *Matcher) CheckDuplicateExcept(ctx context.Context, probe []float32, owner uuid.UUID) (MatchResult, error) {
	return m.checkDuplicate(ctx, probe, owner)
}

func (m *Matcher) checkDuplicate(ctx context.Context, probe []float32, skip uuid.UUID) (MatchResult, error) {
	res, err := m.nearest(ctx, probe, skip, "duplicate")
	if err != nil {
		return res, err
	}
	res.IsDuplicate = res.BestOwnerID != nil && res.BestDistance < m.cfg.DuplicateThreshold
	return res, nil
}

// MatchIdentity finds the closest enrolled identity. It returns
// ErrNoMatchFound unless that distance is strictly below the recognition
// threshold. Callers must not surface the returned result on failure.
func (m *Matcher) MatchIdentity(ctx context.Context, probe []float32) (MatchResult, error) {
	res, err := m.nearest(ctx, probe, uuid.Nil, "recognition")
	if err != nil {
		return res, err
	}
	res.IsMatch = res.BestOwnerID != nil && res.BestDistance < m.cfg.RecognitionThreshold
	if !res.IsMatch {
		return res, ErrNoMatchFound
	}
	return res, nil
}

func (m *Matcher) nearest(ctx context.Context, probe []float32, skip uuid.UUID, purpose string) (MatchResult, error) {
	res := MatchResult{BestDistance: inf}
	if len(probe) == 0 {
		return res, fmt.Errorf("%w: empty probe embedding", ErrExtractorUnavailable)
	}
	if m.cfg.EmbeddingDim > 0 && len(probe) != m.cfg.EmbeddingDim {
		return res, fmt.Errorf("%w: probe has %d dimensions, want %d", ErrExtractorUnavailable, len(probe), m.cfg.EmbeddingDim)
	}

	start := time.Now()
	p := widen(nil, probe)
	var buf []float64
	var best uuid.UUID
	scanned, skipped := 0, 0

	for ident, err := range m.store.ListEnrolledIdentities(ctx) {
		if err != nil {
			return res, fmt.Errorf("scan identities: %w", err)
		}
		if ident.ID == skip && skip != uuid.Nil {
			continue
		}
		if len(ident.Embedding) != len(p) {
			skipped++
			continue
		}
		scanned++
		buf = widen(buf, ident.Embedding)
		d := floats.Distance(p, buf, 2)
		// Strict less-than keeps the first of equidistant owners; the
		// threshold decision does not depend on which one is kept.
		if d < res.BestDistance {
			res.BestDistance = d
			best = ident.ID
		}
	}

	if scanned > 0 {
		id := best
		res.BestOwnerID = &id
		observability.MatchDistance.WithLabelValues(purpose).Observe(res.BestDistance)
	}
	observability.ScanDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
	slog.Debug("identity scan", "purpose", purpose, "scanned", scanned, "skipped", skipped,
		"duration", time.Since(start).String())

	return res, nil
}
