// Package storage defines the blob store used for raw extraction archives.
// Debug runs persist each iteration's extracted payload so feed markup
// regressions can be diagnosed offline.
package storage

import "context"

// Provider abstracts where archived payloads land. PutObject returns the
// URI of the stored object.
type Provider interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// NoOpProvider discards every payload. Used when archiving is disabled.
type NoOpProvider struct{}

// PutObject does nothing and reports an empty URI.
func (NoOpProvider) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
