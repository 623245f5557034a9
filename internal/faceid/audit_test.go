package faceid

import (
	"testing"

	"github.com/google/uuid"
)

func TestFindDuplicatePairs(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	ids := []Identity{
		{ID: a, Embedding: []float32{0, 1, 0, 0}},
		{ID: b, Embedding: []float32{0.3, 1, 0, 0}},
		{ID: c, Embedding: []float32{0, 0, 1, 0}},
		{ID: d, Embedding: []float32{0.1, 1, 0, 0}},
	}

	calls := 0
	pairs := FindDuplicatePairs(ids, DefaultDuplicateThreshold, func() { calls++ })

	if calls != len(ids) {
		t.Errorf("expected %d progress calls, got %d", len(ids), calls)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %+v", pairs)
	}
	if pairs[0].A != a || pairs[0].B != d {
		t.Errorf("closest pair should be a-d, got %+v", pairs[0])
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Distance < pairs[i-1].Distance {
			t.Errorf("pairs not sorted: %+v", pairs)
		}
	}
	for _, p := range pairs {
		if p.A == c || p.B == c {
			t.Errorf("c is far from everyone, got %+v", p)
		}
	}
}

func TestFindDuplicatePairsEmpty(t *testing.T) {
	if pairs := FindDuplicatePairs(nil, 0.4, nil); len(pairs) != 0 {
		t.Errorf("expected no pairs, got %+v", pairs)
	}
}
