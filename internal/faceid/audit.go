package faceid

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// DuplicatePair is two enrolled identities whose vectors are closer than the
// duplicate threshold. Only operator tooling sees these distances.
type DuplicatePair struct {
	A, B     uuid.UUID
	Distance float64
}

// FindDuplicatePairs compares every pair of identities and returns those
// strictly under threshold, closest first. progress, when set, is called once
// per identity.
func FindDuplicatePairs(ids []Identity, threshold float64, progress func()) []DuplicatePair {
	var pairs []DuplicatePair
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			d := Distance(ids[i].Embedding, ids[j].Embedding)
			if d < threshold {
				pairs = append(pairs, DuplicatePair{A: ids[i].ID, B: ids[j].ID, Distance: d})
			}
		}
		if progress != nil {
			progress()
		}
	}
	slices.SortFunc(pairs, func(a, b DuplicatePair) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return pairs
}
