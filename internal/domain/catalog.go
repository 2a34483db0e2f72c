package domain

import (
	"context"
	"time"
)

// DatasetInfo is the summary of a remote catalog dataset shown alongside
// the map.
type DatasetInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Notes        string    `json:"notes"`
	LastModified time.Time `json:"last_modified"`
	Source       string    `json:"source"`
}

// CatalogFetcher retrieves dataset metadata from a remote catalog.
type CatalogFetcher interface {
	Dataset(ctx context.Context, id string) (DatasetInfo, error)
}
