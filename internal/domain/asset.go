package domain

import (
	"errors"
	"os"
	"sync"
	"time"
)

// UploadedAsset describes an image written to the object store.
type UploadedAsset struct {
	PublicURL   string
	StorageKey  string
	ContentType string
	Size        int64
	Width       int
	Height      int
	Checksum    string
	CreatedAt   time.Time
}

// RetrievedArtifact is a generated video held in a transient local file.
// The owner must call Release once the bytes have been transmitted or the
// request was aborted.
type RetrievedArtifact struct {
	MediaType string
	Filename  string
	Size      int64

	path string
	once sync.Once
	err  error
}

// NewRetrievedArtifact wraps an already written transient file.
func NewRetrievedArtifact(path, mediaType, filename string, size int64) *RetrievedArtifact {
	return &RetrievedArtifact{MediaType: mediaType, Filename: filename, Size: size, path: path}
}

// Path returns the location of the transient file.
func (a *RetrievedArtifact) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Open returns a read handle on the artifact bytes.
func (a *RetrievedArtifact) Open() (*os.File, error) {
	if a == nil || a.path == "" {
		return nil, errors.New("artifact: no file")
	}
	return os.Open(a.path)
}

// Release removes the transient file. It is safe to call more than once.
func (a *RetrievedArtifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if a.path == "" {
			return
		}
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.err = err
		}
	})
	return a.err
}
