package crawler

import (
	"context"
	"time"
)

// SnapshotProvider drives the rendered feed page for one crawl session. The
// controller issues exactly one outstanding call at a time and blocks until
// the page responds.
type SnapshotProvider interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script string, out any) error
	ScrollToBottom(ctx context.Context) error
	ScrollHeight(ctx context.Context) (int64, error)
	WaitForIdle(ctx context.Context, timeout time.Duration) error
}

// ChannelResolver recovers channel affiliation for entries the extractor
// could not attribute. One bounded lookup per call, no retry.
type ChannelResolver interface {
	Resolve(ctx context.Context, videoID string) (Resolution, error)
}

// Store is the persistence boundary the controller writes through. Each
// UpsertVideo call commits independently; a failed entry never rolls back
// earlier writes in the same session.
type Store interface {
	PruneVideosBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ChannelExists(ctx context.Context, id string) (bool, error)
	UpsertVideo(ctx context.Context, entry Entry) (UpsertResult, error)
}

// Archiver optionally records raw extraction payloads for offline debugging.
type Archiver interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
