// Package domain contains the core business entities for the Aurelius catalogue service.
package domain

import (
	"time"
)

// Category is a named, slugged grouping for titles ("film", "book", ...).
// A title references at most one category.
type Category struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"-"`

	// Name is the display name.
	Name string `json:"name"`

	// Slug is the globally unique URL identifier.
	Slug string `json:"slug"`
}

// Genre is a named, slugged tag for titles. A title carries one or more.
type Genre struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"-"`

	// Name is the display name.
	Name string `json:"name"`

	// Slug is the globally unique URL identifier.
	Slug string `json:"slug"`
}

// Title is a cataloged work of art.
type Title struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// Name is the work's name.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Year is the release year. Must not be in the future at write time;
	// the bound is the calendar year of the write, not of storage.
	Year int `json:"year"`

	// Category is the optional category. Nil when the title has none,
	// including after its category was deleted.
	Category *Category `json:"category"`

	// Genres are the title's genres. A title is written with at least one.
	Genres []Genre `json:"genre"`

	// Rating is the arithmetic mean of the title's review scores,
	// recomputed on every read. Nil when the title has no reviews —
	// never zero.
	Rating *float64 `json:"rating"`

	// CreatedAt is the timestamp when the title was created.
	CreatedAt time.Time `json:"-"`
}

// ValidYear reports whether the release year is within bounds at the
// given instant.
func (t *Title) ValidYear(now time.Time) bool {
	return t.Year <= now.Year()
}
