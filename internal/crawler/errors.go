package crawler

import "errors"

// Sentinel errors classifying why an entry or field could not be ingested.
var (
	// ErrParse marks count/date/duration text that does not match any known
	// shape. Entries failing with ErrParse are skipped, never stored as zero.
	ErrParse = errors.New("unparseable text")

	// ErrOutOfWindow marks a relative date that is certainly older than the
	// retention window. It feeds the controller's out-of-window counter.
	ErrOutOfWindow = errors.New("published outside retention window")

	// ErrMissingChannel marks an entry with no channel affiliation even after
	// the secondary lookup.
	ErrMissingChannel = errors.New("no channel for entry")

	// ErrUnknownChannel marks an entry whose channel is not tracked in the
	// store. The ingest engine never synthesizes channel rows mid-crawl.
	ErrUnknownChannel = errors.New("channel not tracked")
)
