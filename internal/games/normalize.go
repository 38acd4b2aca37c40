package games

import (
	"sort"
	"strings"
)

// Column headers recognized in the feed. Each field accepts its listed
// headers in order and takes the first non-empty value.
var (
	headersTitle         = []string{"Title", "Name"}
	headersCoverURL      = []string{"Cover URL", "CoverURL"}
	headerCoverFallback  = "Cover"
	headersPlatforms     = []string{"Platforms", "Platform"}
	headersGenres        = []string{"Genres", "Genre"}
	headersYearPlayed    = []string{"Year Played", "Years Played"}
	headersStatus        = []string{"Status"}
	headersOwnership     = []string{"Ownership", "Owned"}
	headersFormat        = []string{"Format"}
	headersReleaseDate   = []string{"Release Date", "Released"}
	headersDateAdded     = []string{"Date Added", "Added"}
	headersBacklog       = []string{"Backlog"}
	headersCompleted     = []string{"Completed"}
	headersDateCompleted = []string{"Date Completed", "Completed On"}
	headersRating        = []string{"My Rating", "Rating"}
	headersCriticRating  = []string{"Critic Rating", "Metacritic"}
	headersHoursPlayed   = []string{"Hours Played", "Hours"}
	headersDeveloper     = []string{"Developer", "Developers"}
	headersDescription   = []string{"Description", "Summary"}
	headersScreenshotURL = []string{"Screenshot URL", "Screenshot"}
	headersExternalID    = []string{"Game ID", "ID"}
	headersQueuedOrder   = []string{"Queued Order"}
	headersWishlistOrder = []string{"Wishlist Order"}
)

const (
	separatorsComma     = ","
	separatorsCommaPipe = ",|"
)

// Normalize maps one raw row into a Record. It returns false when the row
// has no title and must be skipped.
func Normalize(row Row) (Record, bool) {
	title := firstValue(row, headersTitle)
	if title == "" {
		return Record{}, false
	}

	return Record{
		Title:         title,
		CoverURL:      coverURL(row),
		Platforms:     firstTags(row, headersPlatforms, separatorsComma),
		Genres:        firstTags(row, headersGenres, separatorsCommaPipe),
		YearPlayed:    firstTags(row, headersYearPlayed, separatorsCommaPipe),
		Status:        firstValue(row, headersStatus),
		Ownership:     firstValue(row, headersOwnership),
		Format:        firstValue(row, headersFormat),
		ReleaseDate:   firstValue(row, headersReleaseDate),
		DateAdded:     firstValue(row, headersDateAdded),
		Backlog:       firstValue(row, headersBacklog),
		Completed:     firstValue(row, headersCompleted),
		DateCompleted: firstValue(row, headersDateCompleted),
		Rating:        firstValue(row, headersRating),
		CriticRating:  firstValue(row, headersCriticRating),
		HoursPlayed:   firstValue(row, headersHoursPlayed),
		Developer:     firstValue(row, headersDeveloper),
		Description:   firstValue(row, headersDescription),
		ScreenshotURL: firstValue(row, headersScreenshotURL),
		ExternalID:    firstValue(row, headersExternalID),
		QueuedOrder:   firstValue(row, headersQueuedOrder),
		WishlistOrder: firstValue(row, headersWishlistOrder),
	}, true
}

// NormalizeAll normalizes rows in feed order, dropping untitled rows.
func NormalizeAll(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record, ok := Normalize(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

func firstValue(row Row, headers []string) string {
	for _, header := range headers {
		if value := strings.TrimSpace(row[header]); value != "" {
			return value
		}
	}
	return ""
}

func firstTags(row Row, headers []string, separators string) []string {
	for _, header := range headers {
		if tags := splitTags(row[header], separators); len(tags) > 0 {
			return tags
		}
	}
	return []string{}
}

func coverURL(row Row) string {
	if value := firstValue(row, headersCoverURL); value != "" {
		return value
	}
	fallback := strings.TrimSpace(row[headerCoverFallback])
	if strings.HasPrefix(strings.ToLower(fallback), "http") {
		return fallback
	}
	return ""
}

func splitTags(value string, separators string) []string {
	pieces := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	tags := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return uniqueSorted(tags)
}

// uniqueSorted returns the exact-match distinct values of tags in
// lexicographic order.
func uniqueSorted(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	unique := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}
	sort.Strings(unique)
	return unique
}
