package faceid

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
)

func jpegDataURL(tag string) string {
	return EncodeDataURL(Image{Format: "jpeg", Data: append(bytes.Clone(jpegMagic), tag...)})
}

func TestDecodeDataURL(t *testing.T) {
	jpeg := append(bytes.Clone(jpegMagic), "face"...)
	png := append(bytes.Clone(pngMagic), "face"...)
	b64 := base64.StdEncoding.EncodeToString

	tests := []struct {
		name       string
		in         string
		wantFormat string
		wantData   []byte
		wantErr    bool
	}{
		{"jpeg", "data:image/jpeg;base64," + b64(jpeg), "jpeg", jpeg, false},
		{"jpg alias", "data:image/jpg;base64," + b64(jpeg), "jpeg", jpeg, false},
		{"png", "data:image/png;base64," + b64(png), "png", png, false},
		{"surrounding whitespace", "  data:image/png;base64," + b64(png) + "\n", "png", png, false},
		{"unpadded", "data:image/jpeg;base64," + base64.RawStdEncoding.EncodeToString(jpeg), "jpeg", jpeg, false},
		{"gif", "data:image/gif;base64," + b64([]byte("GIF89a")), "", nil, true},
		{"webp", "data:image/webp;base64,UklGRg==", "", nil, true},
		{"no prefix", b64(jpeg), "", nil, true},
		{"empty", "", "", nil, true},
		{"empty payload", "data:image/jpeg;base64,", "", nil, true},
		{"bad base64", "data:image/jpeg;base64,!!!not-base64!!!", "", nil, true},
		{"declared png, payload jpeg", "data:image/png;base64," + b64(jpeg), "", nil, true},
		{"declared jpeg, payload text", "data:image/jpeg;base64," + b64([]byte("hello world")), "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeDataURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedImageFormat) {
					t.Fatalf("expected ErrUnsupportedImageFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Format != tt.wantFormat {
				t.Errorf("expected format %q, got %q", tt.wantFormat, img.Format)
			}
			if !bytes.Equal(img.Data, tt.wantData) {
				t.Errorf("decoded bytes differ")
			}
		})
	}
}

func TestImageContentType(t *testing.T) {
	if got := (Image{Format: "png"}).ContentType(); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
}
