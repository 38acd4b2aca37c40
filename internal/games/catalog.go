package games

import "time"

// Dedupe collapses records sharing a dedupe key. The first occurrence keeps
// its position; later occurrences are merged into it.
func Dedupe(records []Record) []Record {
	merged := make([]Record, 0, len(records))
	positions := make(map[string]int, len(records))
	for _, record := range records {
		key := record.Key()
		if key == "" {
			continue
		}
		position, exists := positions[key]
		if !exists {
			positions[key] = len(merged)
			merged = append(merged, record.clone())
			continue
		}
		merged[position] = mergeRecords(merged[position], record)
	}
	return merged
}

func mergeRecords(existing, incoming Record) Record {
	result := existing.clone()

	result.CoverURL = firstNonEmpty(existing.CoverURL, incoming.CoverURL)

	result.Platforms = uniqueSorted(append(append([]string(nil), existing.Platforms...), incoming.Platforms...))
	result.Genres = uniqueSorted(append(append([]string(nil), existing.Genres...), incoming.Genres...))
	result.YearPlayed = uniqueSorted(append(append([]string(nil), existing.YearPlayed...), incoming.YearPlayed...))

	result.Backlog = mergeFlag(existing.Backlog, incoming.Backlog)
	result.Completed = mergeFlag(existing.Completed, incoming.Completed)

	result.ReleaseDate = mergeDate(existing.ReleaseDate, incoming.ReleaseDate, keepEarlier)
	result.DateAdded = mergeDate(existing.DateAdded, incoming.DateAdded, keepEarlier)
	result.DateCompleted = mergeDate(existing.DateCompleted, incoming.DateCompleted, keepLater)

	result.Status = firstNonEmpty(existing.Status, incoming.Status)
	result.Ownership = firstNonEmpty(existing.Ownership, incoming.Ownership)
	result.Format = firstNonEmpty(existing.Format, incoming.Format)
	result.Rating = firstNonEmpty(existing.Rating, incoming.Rating)
	result.CriticRating = firstNonEmpty(existing.CriticRating, incoming.CriticRating)
	result.HoursPlayed = firstNonEmpty(existing.HoursPlayed, incoming.HoursPlayed)
	result.Developer = firstNonEmpty(existing.Developer, incoming.Developer)
	result.Description = firstNonEmpty(existing.Description, incoming.Description)
	result.ScreenshotURL = firstNonEmpty(existing.ScreenshotURL, incoming.ScreenshotURL)
	result.ExternalID = firstNonEmpty(existing.ExternalID, incoming.ExternalID)
	result.QueuedOrder = firstNonEmpty(existing.QueuedOrder, incoming.QueuedOrder)
	result.WishlistOrder = firstNonEmpty(existing.WishlistOrder, incoming.WishlistOrder)

	return result
}

func firstNonEmpty(existing, incoming string) string {
	if existing != "" {
		return existing
	}
	return incoming
}

func mergeFlag(existing, incoming string) string {
	if IsTruthy(existing) || IsTruthy(incoming) {
		return CanonicalTruthy
	}
	return ""
}

type datePreference func(existing, incoming time.Time) bool

// keepEarlier reports whether the incoming date replaces the existing one.
func keepEarlier(existing, incoming time.Time) bool {
	return incoming.Before(existing)
}

func keepLater(existing, incoming time.Time) bool {
	return incoming.After(existing)
}

func mergeDate(existing, incoming string, replace datePreference) string {
	existingTime, existingOK := ParseDate(existing)
	incomingTime, incomingOK := ParseDate(incoming)
	switch {
	case existingOK && incomingOK:
		if replace(existingTime, incomingTime) {
			return incoming
		}
		return existing
	case incomingOK:
		return incoming
	default:
		return existing
	}
}

// Catalog is an immutable working set built from one feed load.
type Catalog struct {
	records []Record
	byKey   map[string]int
}

// NewCatalog deduplicates records and indexes them by dedupe key.
func NewCatalog(records []Record) *Catalog {
	merged := Dedupe(records)
	byKey := make(map[string]int, len(merged))
	for index, record := range merged {
		byKey[record.Key()] = index
	}
	return &Catalog{records: merged, byKey: byKey}
}

// NewCatalogFromRows normalizes raw rows and builds a catalog from them.
func NewCatalogFromRows(rows []Row) *Catalog {
	return NewCatalog(NormalizeAll(rows))
}

// Len returns the number of records in the working set.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns a copy of the working set in feed order.
func (c *Catalog) Records() []Record {
	if c == nil {
		return nil
	}
	copies := make([]Record, len(c.records))
	for index, record := range c.records {
		copies[index] = record.clone()
	}
	return copies
}

// Lookup returns the record stored under the dedupe key of title.
func (c *Catalog) Lookup(title string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	index, ok := c.byKey[DedupeKey(title)]
	if !ok {
		return Record{}, false
	}
	return c.records[index].clone(), true
}
