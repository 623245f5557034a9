package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceauth/internal/config"
	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/internal/observability"
)

const (
	DetectionModel = "det_10g.onnx"
	EmbeddingModel = "w600k_r50.onnx"
)

// Pipeline is one detector and one embedder. It turns a still image into a
// single face embedding and must be used by one goroutine at a time.
type Pipeline struct {
	detector *Detector
	embedder *Embedder
}

// NewPipeline loads both models from cfg.ModelsDir.
func NewPipeline(cfg config.VisionConfig, dim int) (*Pipeline, error) {
	detPath := filepath.Join(cfg.ModelsDir, DetectionModel)
	embPath := filepath.Join(cfg.ModelsDir, EmbeddingModel)

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath, dim, nil)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Pipeline{detector: det, embedder: emb}, nil
}

// EmbedImage decodes a JPEG or PNG, takes the first (highest-confidence)
// detection and returns its embedding. Errors wrap the faceid sentinels so
// callers can classify them.
func (p *Pipeline) EmbedImage(data []byte) ([]float32, error) {
	start := time.Now()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", faceid.ErrUnsupportedImageFormat, err)
	}
	b := img.Bounds()
	dw, dh := p.detector.InputSize()
	detInput := toCHW(img, dw, dh, detMean, detStd)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := p.detector.Detect(detInput, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faceid.ErrExtractorUnavailable, err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	if len(detections) == 0 {
		return nil, faceid.ErrNoFaceDetected
	}
	if len(detections) > 1 {
		slog.Debug("multiple faces in image, using the first", "faces", len(detections))
	}

	// Shift the box into image coordinates for non-zero-origin bounds.
	box := detections[0].BBox
	box[0], box[2] = box[0]+float32(b.Min.X), box[2]+float32(b.Min.X)
	box[1], box[3] = box[1]+float32(b.Min.Y), box[3]+float32(b.Min.Y)
	face := cropFace(img, box)
	if face == nil {
		return nil, faceid.ErrNoFaceDetected
	}

	start = time.Now()
	embedding, err := p.embedder.Embed(toCHW(face, embInputSize, embInputSize, embMean, embStd))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faceid.ErrExtractorUnavailable, err)
	}
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	return embedding, nil
}

// Close releases both ONNX sessions.
func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
	if p.embedder != nil {
		p.embedder.Close()
	}
}

// InitRuntime points onnxruntime_go at the shared library and initializes
// the environment. An empty libPath picks the platform default name.
func InitRuntime(libPath string) error {
	if libPath == "" {
		libPath = defaultONNXLib()
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime (%s): %w", libPath, err)
	}
	return nil
}

func DestroyRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Warn("destroy onnx runtime", "error", err)
	}
}
