package vision

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func box(x1, y1, x2, y2, conf float32) Detection {
	return Detection{BBox: [4]float32{x1, y1, x2, y2}, Confidence: conf}
}

func TestNMS(t *testing.T) {
	dets := []Detection{
		box(0, 0, 10, 10, 0.7),
		box(1, 1, 11, 11, 0.9), // overlaps the first heavily
		box(50, 50, 60, 60, 0.8),
	}

	kept := nms(dets, 0.4)
	if len(kept) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(kept))
	}
	if kept[0].Confidence != 0.9 || kept[1].Confidence != 0.8 {
		t.Errorf("expected confidences [0.9 0.8], got [%v %v]", kept[0].Confidence, kept[1].Confidence)
	}
}

func TestNMSEmpty(t *testing.T) {
	if got := nms(nil, 0.4); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestIOU(t *testing.T) {
	tests := []struct {
		name string
		a, b Detection
		want float32
	}{
		{"identical", box(0, 0, 10, 10, 1), box(0, 0, 10, 10, 1), 1},
		{"disjoint", box(0, 0, 10, 10, 1), box(20, 20, 30, 30, 1), 0},
		{"touching", box(0, 0, 10, 10, 1), box(10, 0, 20, 10, 1), 0},
		{"half", box(0, 0, 10, 10, 1), box(5, 0, 15, 10, 1), 50.0 / 150.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(tt.a, tt.b); math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCropFace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	crop := cropFace(img, [4]float32{20, 20, 60, 60})
	if crop == nil {
		t.Fatal("expected a crop")
	}
	if b := crop.Bounds(); b.Dx() != 48 || b.Dy() != 48 {
		t.Errorf("expected 48x48 padded crop, got %dx%d", b.Dx(), b.Dy())
	}

	edge := cropFace(img, [4]float32{90, 90, 120, 120})
	if b := edge.Bounds(); b.Dx() != 11 || b.Dy() != 11 {
		t.Errorf("expected crop clamped to 11x11, got %dx%d", b.Dx(), b.Dy())
	}

	if cropFace(img, [4]float32{50, 50, 50, 80}) != nil {
		t.Error("expected nil for zero-width box")
	}
	if cropFace(img, [4]float32{200, 200, 220, 220}) != nil {
		t.Error("expected nil for box outside the image")
	}
}

func TestToCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 128, A: 255})
		}
	}

	out := toCHW(img, 2, 2, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
	if len(out) != 12 {
		t.Fatalf("expected 12 values, got %d", len(out))
	}
	for i := range 4 {
		if out[i] != 255 || out[4+i] != 0 || out[8+i] != 128 {
			t.Fatalf("unexpected planar layout at %d: r=%v g=%v b=%v", i, out[i], out[4+i], out[8+i])
		}
	}
}

func TestNormalize(t *testing.T) {
	v := normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected [0.6 0.8], got %v", v)
	}

	zero := normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("expected zero vector unchanged, got %v", zero)
	}
}
