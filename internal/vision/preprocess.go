package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// Per-model input normalization: pixel = (pixel - mean) / std.
var (
	detMean, detStd = [3]float32{127.5, 127.5, 127.5}, [3]float32{128, 128, 128}
	embMean, embStd = [3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5}
)

// toCHW resizes img to w x h and lays it out as normalized planar RGB.
func toCHW(img image.Image, w, h int, mean, std [3]float32) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := w * h
	out := make([]float32, 3*plane)
	for i := range plane {
		px := dst.Pix[i*4 : i*4+3]
		for c := range 3 {
			out[c*plane+i] = (float32(px[c]) - mean[c]) / std[c]
		}
	}
	return out
}

// cropFace cuts the detection box out of img with 10% padding on each side.
// It returns nil for a degenerate box.
func cropFace(img image.Image, bbox [4]float32) image.Image {
	b := img.Bounds()
	r := image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3])).Intersect(b)
	if r.Empty() {
		return nil
	}

	padX, padY := r.Dx()/10, r.Dy()/10
	r = image.Rect(r.Min.X-padX, r.Min.Y-padY, r.Max.X+padX, r.Max.Y+padY).Intersect(b)

	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), img, r.Min, draw.Src)
	return crop
}
