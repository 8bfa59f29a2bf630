package models

import "time"

// Download is a gated file kept in object storage.
type Download struct {
	ID         string
	Title      string
	StorageKey string
}

// Lead records who asked for a gated download.
type Lead struct {
	ID         string
	DownloadID string
	Email      string
	Name       string
	CreatedAt  time.Time
}
