package vision

import (
	"cmp"
	"fmt"
	"slices"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one face found by the detector, in source image pixels.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2
	Confidence float32
	Landmarks  [5][2]float32
}

func (d Detection) area() float32 {
	return (d.BBox[2] - d.BBox[0]) * (d.BBox[3] - d.BBox[1])
}

// Detector runs RetinaFace (det_10g) through ONNX Runtime. A Detector owns
// its tensors and is not safe for concurrent use.
type Detector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	outputs   []*ort.Tensor[float32]
	threshold float32
	inputW    int
	inputH    int
}

const (
	detInputSize     = 640
	anchorsPerCell   = 2
	detIOUThreshold  = 0.4
	detInputName     = "input.1"
	landmarksPerFace = 5
)

var detStrides = [3]int{8, 16, 32}

// det_10g has no batch dimension on its outputs. Names are grouped as
// scores, boxes, landmarks, each ordered by stride.
var detOutputs = []struct {
	name  string
	width int64
}{
	{"448", 1}, {"471", 1}, {"494", 1},
	{"451", 4}, {"474", 4}, {"497", 4},
	{"454", 10}, {"477", 10}, {"500", 10},
}

// NewDetector loads the detection model. opts may be nil.
func NewDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	d := &Detector{threshold: threshold, inputW: detInputSize, inputH: detInputSize}

	var err error
	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, detInputSize, detInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	names := make([]string, len(detOutputs))
	values := make([]ort.Value, len(detOutputs))
	for i, out := range detOutputs {
		cells := int64(detInputSize/detStrides[i%3]) * int64(detInputSize/detStrides[i%3]) * anchorsPerCell
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(cells, out.width))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("create output tensor %s: %w", out.name, err)
		}
		d.outputs = append(d.outputs, t)
		names[i] = out.name
		values[i] = t
	}

	d.session, err = ort.NewAdvancedSession(modelPath,
		[]string{detInputName}, names,
		[]ort.Value{d.input}, values,
		opts,
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create detector session: %w", err)
	}
	return d, nil
}

// Detect runs the model on a CHW tensor of the detector's input size and
// returns faces sorted by descending confidence after NMS.
func (d *Detector) Detect(chw []float32, origW, origH int) ([]Detection, error) {
	copy(d.input.GetData(), chw)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}
	return nms(d.decode(origW, origH), detIOUThreshold), nil
}

func (d *Detector) decode(origW, origH int) []Detection {
	var out []Detection
	sx := float32(origW) / float32(d.inputW)
	sy := float32(origH) / float32(d.inputH)

	for si, stride := range detStrides {
		scores := d.outputs[si].GetData()
		boxes := d.outputs[si+3].GetData()
		marks := d.outputs[si+6].GetData()
		cols, rows := d.inputW/stride, d.inputH/stride
		st := float32(stride)

		for i := range rows * cols * anchorsPerCell {
			if scores[i] < d.threshold {
				continue
			}
			cell := i / anchorsPerCell
			ax := float32(cell%cols) * st
			ay := float32(cell/cols) * st

			b := boxes[i*4 : i*4+4]
			det := Detection{
				BBox: [4]float32{
					clamp((ax-b[0]*st)*sx, 0, float32(origW)),
					clamp((ay-b[1]*st)*sy, 0, float32(origH)),
					clamp((ax+b[2]*st)*sx, 0, float32(origW)),
					clamp((ay+b[3]*st)*sy, 0, float32(origH)),
				},
				Confidence: scores[i],
			}
			lm := marks[i*10 : i*10+10]
			for k := range landmarksPerFace {
				det.Landmarks[k] = [2]float32{(ax + lm[2*k]*st) * sx, (ay + lm[2*k+1]*st) * sy}
			}
			out = append(out, det)
		}
	}
	return out
}

func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	for _, t := range d.outputs {
		t.Destroy()
	}
}

// nms sorts by confidence and drops boxes overlapping a stronger one by more
// than iouThreshold.
func nms(dets []Detection, iouThreshold float32) []Detection {
	slices.SortStableFunc(dets, func(a, b Detection) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	var kept []Detection
	for _, cand := range dets {
		suppressed := false
		for _, k := range kept {
			if iou(k, cand) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

func iou(a, b Detection) float32 {
	w := min(a.BBox[2], b.BBox[2]) - max(a.BBox[0], b.BBox[0])
	h := min(a.BBox[3], b.BBox[3]) - max(a.BBox[1], b.BBox[1])
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := w * h
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
