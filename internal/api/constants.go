package api

// Cache-Control header values.
const (
	// Cover blobs are content-addressed, so a download never changes.
	CacheImmutable = "private, max-age=31536000, immutable"
	CacheNoStore   = "no-store"
)
