package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-rights/pkg/simplerights"
)

// Backend is an in-memory implementation of the simplerights.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory archive backend
func New() simplerights.BlobStore {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// Upload stores content under objectKey
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, simplerights.UploadParams{
		ObjectKey: objectKey,
		MimeType:  "application/octet-stream",
	})
}

// UploadWithParams stores content and its MIME type
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simplerights.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.mimeTypes[params.ObjectKey] = params.MimeType
	return nil
}

// GetDownloadURL is unsupported; memory objects are read with Download
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", simplerights.ErrArchiveURLUnsupported
}

// Download returns a reader over the stored bytes
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simplerights.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return simplerights.ErrObjectNotFound
	}
	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	return nil
}

// MimeType reports the MIME type an object was stored with
func (b *Backend) MimeType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	mt, ok := b.mimeTypes[objectKey]
	return mt, ok
}
