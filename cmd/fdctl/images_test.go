package main

import (
	"slices"
	"testing"
	"time"

	"github.com/your-org/faceauth/internal/storage"
)

func TestOrphanKeys(t *testing.T) {
	now := time.Now()
	cutoff := now.Add(-time.Hour)
	old := now.Add(-24 * time.Hour)

	obj := func(key string, modified time.Time) storage.ObjectInfo {
		return storage.ObjectInfo{Key: key, LastModified: modified}
	}

	referenced := map[string]struct{}{
		"faces/a/1.jpg": {},
		"faces/b/2.png": {},
	}

	tests := []struct {
		name   string
		stored []storage.ObjectInfo
		want   []string
	}{
		{"all referenced", []storage.ObjectInfo{obj("faces/a/1.jpg", old), obj("faces/b/2.png", old)}, nil},
		{"old photo after re-enroll", []storage.ObjectInfo{obj("faces/a/0.jpg", old), obj("faces/a/1.jpg", old)}, []string{"faces/a/0.jpg"}},
		{"deleted employee", []storage.ObjectInfo{obj("faces/z/9.jpg", old), obj("faces/c/3.jpg", old), obj("faces/b/2.png", old)}, []string{"faces/c/3.jpg", "faces/z/9.jpg"}},
		// Uploaded by an enrollment that had not committed when employees were listed.
		{"in-flight enrollment", []storage.ObjectInfo{obj("faces/n/1.jpg", now.Add(-time.Minute))}, nil},
		{"at cutoff", []storage.ObjectInfo{obj("faces/n/2.jpg", cutoff)}, nil},
		{"just past cutoff", []storage.ObjectInfo{obj("faces/n/3.jpg", cutoff.Add(-time.Second))}, []string{"faces/n/3.jpg"}},
		{"empty bucket", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orphanKeys(tt.stored, referenced, cutoff); !slices.Equal(got, tt.want) {
				t.Errorf("orphanKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}
