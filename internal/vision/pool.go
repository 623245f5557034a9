package vision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/observability"
)

type imageEmbedder interface {
	EmbedImage(data []byte) ([]float32, error)
	Close()
}

// Pool hands out a fixed set of pipelines, one request per pipeline at a
// time. It implements faceid.Extractor.
type Pool struct {
	slots   chan imageEmbedder
	size    int
	timeout time.Duration
	once    sync.Once
}

var _ faceid.Extractor = (*Pool)(nil)

// NewPool loads cfg.WorkerCount pipelines. The ONNX runtime must already be
// initialized.
func NewPool(cfg config.VisionConfig, dim int) (*Pool, error) {
	members := make([]imageEmbedder, 0, cfg.WorkerCount)
	for i := range cfg.WorkerCount {
		p, err := NewPipeline(cfg, dim)
		if err != nil {
			for _, m := range members {
				m.Close()
			}
			return nil, fmt.Errorf("pipeline %d: %w", i, err)
		}
		members = append(members, p)
	}
	slog.Info("vision pool ready", "pipelines", len(members), "timeout", cfg.ExtractTimeout)
	return newPool(members, cfg.ExtractTimeout), nil
}

func newPool(members []imageEmbedder, timeout time.Duration) *Pool {
	p := &Pool{
		slots:   make(chan imageEmbedder, len(members)),
		size:    len(members),
		timeout: timeout,
	}
	for _, m := range members {
		p.slots <- m
	}
	return p
}

type extraction struct {
	embedding []float32
	err       error
}

// Extract waits for a free pipeline and runs it on img. Waiting and inference
// together are bounded by the pool timeout; exceeding it returns
// ErrExtractorUnavailable. A pipeline whose caller gave up finishes its run
// and goes back to the pool.
func (p *Pool) Extract(ctx context.Context, img faceid.Image) ([]float32, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var m imageEmbedder
	select {
	case m = <-p.slots:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for pipeline: %w", faceid.ErrExtractorUnavailable, ctx.Err())
	}

	observability.ExtractorBusy.Inc()
	done := make(chan extraction, 1)
	go func() {
		defer func() {
			observability.ExtractorBusy.Dec()
			p.slots <- m
		}()
		emb, err := m.EmbedImage(img.Data)
		done <- extraction{emb, err}
	}()

	select {
	case r := <-done:
		return r.embedding, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: inference: %w", faceid.ErrExtractorUnavailable, ctx.Err())
	}
}

// Close waits for in-flight extractions and releases every pipeline.
func (p *Pool) Close() {
	p.once.Do(func() {
		for range p.size {
			(<-p.slots).Close()
		}
	})
}
