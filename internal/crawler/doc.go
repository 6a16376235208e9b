// Package crawler implements the incremental crawl controller for the
// subscriptions feed: snapshot extraction, text normalization, channel
// resolution and ingestion into the video store. One Controller run is one
// bounded crawl session from Idle to Terminated.
package crawler
