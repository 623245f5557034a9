package vision

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/floats"
)

const (
	embInputSize  = 112
	embInputName  = "input.1"
	embOutputName = "683"
)

// Embedder runs ArcFace (w600k_r50) on aligned face crops. Not safe for
// concurrent use.
type Embedder struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	dim     int
}

// NewEmbedder loads the embedding model. dim must match the model's output
// width.
func NewEmbedder(modelPath string, dim int, opts *ort.SessionOptions) (*Embedder, error) {
	e := &Embedder{dim: dim}

	var err error
	e.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, embInputSize, embInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	e.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dim)))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(modelPath,
		[]string{embInputName}, []string{embOutputName},
		[]ort.Value{e.input}, []ort.Value{e.output},
		opts,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}
	return e, nil
}

// Embed returns the L2-normalized embedding of a CHW face crop.
func (e *Embedder) Embed(chw []float32) ([]float32, error) {
	copy(e.input.GetData(), chw)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	out := e.output.GetData()
	if len(out) < e.dim {
		return nil, fmt.Errorf("embedder produced %d values, want %d", len(out), e.dim)
	}
	return normalize(out[:e.dim]), nil
}

func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.input != nil {
		e.input.Destroy()
	}
	if e.output != nil {
		e.output.Destroy()
	}
}

// normalize returns a unit-length copy of v. A zero vector is copied as is.
func normalize(v []float32) []float32 {
	wide := make([]float64, len(v))
	for i, x := range v {
		wide[i] = float64(x)
	}
	out := make([]float32, len(v))
	norm := floats.Norm(wide, 2)
	for i, x := range wide {
		if norm > 0 {
			x /= norm
		}
		out[i] = float32(x)
	}
	return out
}
