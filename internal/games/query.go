package games

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Tab selects one of the top-level catalog views.
type Tab string

const (
	TabAll        Tab = "all"
	TabNowPlaying Tab = "now-playing"
	TabQueued     Tab = "queued"
	TabWishlist   Tab = "wishlist"
	TabCompleted  Tab = "completed"
)

// SortKey names the field a listing is ordered by.
type SortKey string

const (
	SortTitle         SortKey = "title"
	SortReleaseDate   SortKey = "release"
	SortDateAdded     SortKey = "added"
	SortDateCompleted SortKey = "completed"
	// SortOrder uses the manual order column of the active tab.
	SortOrder SortKey = "order"
)

// SortDirection orders a listing ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

const (
	statusNowPlaying  = "now playing"
	statusQueued      = "queued"
	ownershipWishlist = "wishlist"
)

var (
	// ErrInvalidTab indicates an unknown tab value.
	ErrInvalidTab = errors.New("games: invalid tab")
	// ErrInvalidSortKey indicates an unknown sort key.
	ErrInvalidSortKey = errors.New("games: invalid sort key")
	// ErrInvalidSortDirection indicates an unknown sort direction.
	ErrInvalidSortDirection = errors.New("games: invalid sort direction")
)

// ParseTab validates raw input; empty input selects TabAll.
func ParseTab(raw string) (Tab, error) {
	switch tab := Tab(strings.ToLower(strings.TrimSpace(raw))); tab {
	case "":
		return TabAll, nil
	case TabAll, TabNowPlaying, TabQueued, TabWishlist, TabCompleted:
		return tab, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTab, raw)
	}
}

// ParseSortKey validates raw input; empty input selects SortTitle.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortTitle, nil
	case SortTitle, SortReleaseDate, SortDateAdded, SortDateCompleted, SortOrder:
		return key, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, raw)
	}
}

// ParseSortDirection validates raw input; empty input selects SortAscending.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch direction := SortDirection(strings.ToLower(strings.TrimSpace(raw))); direction {
	case "":
		return SortAscending, nil
	case SortAscending, SortDescending:
		return direction, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortDirection, raw)
	}
}

// Query is the complete filter and sort state of one catalog request.
// The zero value lists every record by title.
type Query struct {
	Search      string
	Tab         Tab
	Status      string
	Ownership   string
	Format      string
	Platform    string
	Genres      []string
	YearsPlayed []string
	Sort        SortKey
	Direction   SortDirection
}

func (q Query) matches(record Record, omit Dimension) bool {
	if !matchesTab(record, q.Tab) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		if !strings.Contains(strings.ToLower(record.Title), search) {
			return false
		}
	}
	if omit != DimensionStatus && q.Status != "" && record.Status != q.Status {
		return false
	}
	if omit != DimensionOwnership && q.Ownership != "" && record.Ownership != q.Ownership {
		return false
	}
	if omit != DimensionFormat && q.Format != "" && record.Format != q.Format {
		return false
	}
	if omit != DimensionPlatform && q.Platform != "" && !slices.Contains(record.Platforms, q.Platform) {
		return false
	}
	if omit != DimensionGenre {
		for _, genre := range q.Genres {
			if !slices.Contains(record.Genres, genre) {
				return false
			}
		}
	}
	if omit != DimensionYearPlayed && len(q.YearsPlayed) > 0 {
		if !slices.ContainsFunc(q.YearsPlayed, func(year string) bool {
			return slices.Contains(record.YearPlayed, year)
		}) {
			return false
		}
	}
	return true
}

func matchesTab(record Record, tab Tab) bool {
	switch tab {
	case TabNowPlaying:
		return strings.EqualFold(record.Status, statusNowPlaying)
	case TabQueued:
		return strings.EqualFold(record.Status, statusQueued)
	case TabWishlist:
		return strings.EqualFold(record.Ownership, ownershipWishlist)
	case TabCompleted:
		return record.IsCompleted()
	default:
		return true
	}
}

// Filter returns the records passing every active predicate, sorted by the
// query's sort key and direction.
func (c *Catalog) Filter(q Query) []Record {
	if c == nil {
		return []Record{}
	}
	matched := filterRecords(c.records, q, dimensionNone)
	sortRecords(matched, q)
	return matched
}

func filterRecords(records []Record, q Query, omit Dimension) []Record {
	matched := make([]Record, 0, len(records))
	for _, record := range records {
		if q.matches(record, omit) {
			matched = append(matched, record.clone())
		}
	}
	return matched
}

func sortRecords(records []Record, q Query) {
	descending := q.Direction == SortDescending
	switch q.Sort {
	case SortReleaseDate:
		sortByDate(records, descending, func(r Record) string { return r.ReleaseDate })
	case SortDateAdded:
		sortByDate(records, descending, func(r Record) string { return r.DateAdded })
	case SortDateCompleted:
		sortByDate(records, descending, func(r Record) string { return r.DateCompleted })
	case SortOrder:
		sortByOrder(records, descending, q.Tab)
	default:
		slices.SortStableFunc(records, func(left, right Record) int {
			return applyDirection(compareTitles(left.Title, right.Title), descending)
		})
	}
}

func sortByDate(records []Record, descending bool, field func(Record) string) {
	slices.SortStableFunc(records, func(left, right Record) int {
		if result := applyDirection(compareDates(field(left), field(right)), descending); result != 0 {
			return result
		}
		return compareTitles(left.Title, right.Title)
	})
}

func sortByOrder(records []Record, descending bool, tab Tab) {
	field := func(r Record) string { return r.QueuedOrder }
	if tab == TabWishlist {
		field = func(r Record) string { return r.WishlistOrder }
	}
	slices.SortStableFunc(records, func(left, right Record) int {
		leftOrder, leftOK := parseOrder(field(left))
		rightOrder, rightOK := parseOrder(field(right))
		switch {
		case leftOK && !rightOK:
			return -1
		case !leftOK && rightOK:
			return 1
		case leftOK && rightOK && leftOrder != rightOrder:
			if leftOrder < rightOrder {
				return applyDirection(-1, descending)
			}
			return applyDirection(1, descending)
		}
		return compareTitles(left.Title, right.Title)
	})
}

func parseOrder(value string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func compareTitles(left, right string) int {
	if result := strings.Compare(strings.ToLower(left), strings.ToLower(right)); result != 0 {
		return result
	}
	return strings.Compare(left, right)
}

func applyDirection(result int, descending bool) int {
	if descending {
		return -result
	}
	return result
}
