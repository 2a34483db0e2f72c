package presentation

import (
	"time"
	"unicode/utf8"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
)

// NotesPreviewLength is the number of characters of dataset notes shown
// before truncation.
const NotesPreviewLength = 150

// CatalogCard is the complementary-data panel for a catalog dataset.
type CatalogCard struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastUpdated string `json:"last_updated,omitempty"`
	Notes       string `json:"notes"`
	Attribution string `json:"attribution"`
}

// SummarizeDataset builds the catalog card for a dataset.
func SummarizeDataset(info domain.DatasetInfo) CatalogCard {
	card := CatalogCard{
		ID:          info.ID,
		Title:       info.Title,
		Notes:       TruncateNotes(info.Notes, NotesPreviewLength),
		Attribution: "Complementary data from the World Resources Institute (WRI).",
	}
	if !info.LastModified.IsZero() {
		card.LastUpdated = info.LastModified.UTC().Format(time.DateOnly)
	}
	return card
}

// TruncateNotes cuts s to n characters and appends "..." when it is longer.
func TruncateNotes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
