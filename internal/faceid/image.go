package faceid

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Image is a still image as delivered by the client, already base64-decoded.
type Image struct {
	Format string // "jpeg" or "png"
	Data   []byte
}

func (img Image) ContentType() string {
	return "image/" + img.Format
}

var dataURLPrefix = regexp.MustCompile(`^data:image/(jpeg|jpg|png);base64,`)

// DecodeDataURL validates a "data:image/jpeg;base64,..." (or png) string and
// returns the decoded bytes. The declared type must agree with the payload's
// magic bytes.
func DecodeDataURL(s string) (Image, error) {
	s = strings.TrimSpace(s)
	m := dataURLPrefix.FindStringSubmatch(s)
	if m == nil {
		return Image{}, fmt.Errorf("%w: expected data:image/jpeg or data:image/png base64 url", ErrUnsupportedImageFormat)
	}

	format := m[1]
	if format == "jpg" {
		format = "jpeg"
	}

	payload := s[len(m[0]):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some browsers strip padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Image{}, fmt.Errorf("%w: invalid base64 payload", ErrUnsupportedImageFormat)
		}
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrUnsupportedImageFormat)
	}

	if detected := http.DetectContentType(data); detected != "image/"+format {
		return Image{}, fmt.Errorf("%w: declared image/%s, payload is %s", ErrUnsupportedImageFormat, format, detected)
	}

	return Image{Format: format, Data: data}, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(img Image) string {
	return "data:image/" + img.Format + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
