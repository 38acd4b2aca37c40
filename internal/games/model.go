package games

import (
	"slices"
	"strings"
)

// Row is one raw feed row keyed by column header.
type Row map[string]string

// CanonicalTruthy is the value stored for boolean-ish fields that merged to true.
const CanonicalTruthy = "true"

var truthyTokens = map[string]struct{}{
	"true":    {},
	"yes":     {},
	"y":       {},
	"1":       {},
	"checked": {},
	"x":       {},
}

// IsTruthy reports whether a boolean-ish cell value reads as true.
func IsTruthy(value string) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Record models one logical game in the working set.
type Record struct {
	Title         string   `json:"title"`
	CoverURL      string   `json:"cover_url"`
	Platforms     []string `json:"platforms"`
	Genres        []string `json:"genres"`
	YearPlayed    []string `json:"year_played"`
	Status        string   `json:"status"`
	Ownership     string   `json:"ownership"`
	Format        string   `json:"format"`
	ReleaseDate   string   `json:"release_date"`
	DateAdded     string   `json:"date_added"`
	Backlog       string   `json:"backlog"`
	Completed     string   `json:"completed"`
	DateCompleted string   `json:"date_completed"`
	Rating        string   `json:"rating"`
	CriticRating  string   `json:"critic_rating"`
	HoursPlayed   string   `json:"hours_played"`
	Developer     string   `json:"developer"`
	Description   string   `json:"description"`
	ScreenshotURL string   `json:"screenshot_url"`
	ExternalID    string   `json:"external_id"`
	QueuedOrder   string   `json:"queued_order"`
	WishlistOrder string   `json:"wishlist_order"`
}

// Key returns the dedupe key of the record.
func (r Record) Key() string {
	return DedupeKey(r.Title)
}

// IsBacklog reports the boolean reading of the backlog flag.
func (r Record) IsBacklog() bool {
	return IsTruthy(r.Backlog)
}

// IsCompleted reports the boolean reading of the completed flag.
func (r Record) IsCompleted() bool {
	return IsTruthy(r.Completed)
}

// DedupeKey normalizes a title into the identity used to merge duplicate rows.
func DedupeKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func (r Record) clone() Record {
	copied := r
	copied.Platforms = slices.Clone(r.Platforms)
	copied.Genres = slices.Clone(r.Genres)
	copied.YearPlayed = slices.Clone(r.YearPlayed)
	return copied
}
