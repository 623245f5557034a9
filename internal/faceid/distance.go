package faceid

import (
	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between two embeddings. Vectors of
// different length are infinitely far apart.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return inf
	}
	return floats.Distance(widen(nil, a), widen(nil, b), 2)
}

// widen copies v into buf as float64, growing buf when needed.
func widen(buf []float64, v []float32) []float64 {
	if cap(buf) < len(v) {
		buf = make([]float64, len(v))
	}
	buf = buf[:len(v)]
	for i, x := range v {
		buf[i] = float64(x)
	}
	return buf
}
