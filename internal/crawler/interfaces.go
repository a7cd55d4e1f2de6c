package crawler

import (
	"context"
	"io"
	"time"
)

// RecordStore persists record batches with replace-all semantics per source tag.
type RecordStore interface {
	Replace(ctx context.Context, records []Record, tag DataSource) (int, error)
	Count(ctx context.Context, tag DataSource) (int, error)
	Close()
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Transport performs one HTTP GET with redirects followed.
type Transport interface {
	Get(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Fetcher runs a bounded, retried logical fetch and always returns a terminal result.
type Fetcher interface {
	Fetch(ctx context.Context, address string, rc RequestContext, opts FetchOptions) FetchResult
}

// Extractor turns a raw payload into record candidates.
type Extractor interface {
	Extract(body []byte) []RecordCandidate
}

// IdentitySource hands out a fresh request identity per fetch.
type IdentitySource interface {
	RequestContext(profile IdentityProfile) RequestContext
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
