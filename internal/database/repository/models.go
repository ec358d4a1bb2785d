package repository

import "time"

// ContentHash represents a content_hashes row.
type ContentHash struct {
	ID         string
	Path       string
	SHA256     string
	Size       int64
	ModifiedAt time.Time
	HashedAt   time.Time
}
