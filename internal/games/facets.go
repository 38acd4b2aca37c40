package games

import (
	"slices"
	"sort"
)

// Dimension names a filterable facet of the catalog.
type Dimension string

const (
	DimensionPlatform   Dimension = "platform"
	DimensionStatus     Dimension = "status"
	DimensionOwnership  Dimension = "ownership"
	DimensionFormat     Dimension = "format"
	DimensionGenre      Dimension = "genre"
	DimensionYearPlayed Dimension = "year_played"

	dimensionNone Dimension = ""
)

// Dimensions lists every facet in display order.
var Dimensions = []Dimension{
	DimensionPlatform,
	DimensionStatus,
	DimensionOwnership,
	DimensionFormat,
	DimensionGenre,
	DimensionYearPlayed,
}

// FacetOption is one selectable value of a facet and its match count.
type FacetOption struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetCounts maps each dimension to its options.
type FacetCounts map[Dimension][]FacetOption

// Result is the outcome of one catalog query.
type Result struct {
	Games  []Record
	Total  int
	Facets FacetCounts
}

// Query filters, sorts and counts facets in one pass over the working set.
func (c *Catalog) Query(q Query) Result {
	matched := c.Filter(q)
	return Result{
		Games:  matched,
		Total:  len(matched),
		Facets: c.FacetCounts(q),
	}
}

// FacetCounts computes option counts for every dimension.
func (c *Catalog) FacetCounts(q Query) FacetCounts {
	counts := make(FacetCounts, len(Dimensions))
	for _, dimension := range Dimensions {
		counts[dimension] = c.CountFacet(q, dimension)
	}
	return counts
}

// CountFacet counts, for each option of dimension, the records matching
// every active filter except the dimension's own selection.
func (c *Catalog) CountFacet(q Query, dimension Dimension) []FacetOption {
	if c == nil {
		return optionsWithCounts(selectedValues(q, dimension), nil, dimension)
	}
	options := observedValues(c.records, dimension)
	for _, selected := range selectedValues(q, dimension) {
		if !slices.Contains(options, selected) {
			options = append(options, selected)
		}
	}
	sort.Strings(options)

	base := filterRecords(c.records, q, dimension)
	return optionsWithCounts(options, base, dimension)
}

func optionsWithCounts(options []string, base []Record, dimension Dimension) []FacetOption {
	result := make([]FacetOption, 0, len(options))
	for _, option := range options {
		count := 0
		for _, record := range base {
			if slices.Contains(dimensionValues(record, dimension), option) {
				count++
			}
		}
		result = append(result, FacetOption{Value: option, Count: count})
	}
	return result
}

func observedValues(records []Record, dimension Dimension) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, record := range records {
		for _, value := range dimensionValues(record, dimension) {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			values = append(values, value)
		}
	}
	return values
}

func dimensionValues(record Record, dimension Dimension) []string {
	switch dimension {
	case DimensionPlatform:
		return record.Platforms
	case DimensionGenre:
		return record.Genres
	case DimensionYearPlayed:
		return record.YearPlayed
	case DimensionStatus:
		return nonEmpty(record.Status)
	case DimensionOwnership:
		return nonEmpty(record.Ownership)
	case DimensionFormat:
		return nonEmpty(record.Format)
	default:
		return nil
	}
}

func selectedValues(q Query, dimension Dimension) []string {
	switch dimension {
	case DimensionPlatform:
		return nonEmpty(q.Platform)
	case DimensionStatus:
		return nonEmpty(q.Status)
	case DimensionOwnership:
		return nonEmpty(q.Ownership)
	case DimensionFormat:
		return nonEmpty(q.Format)
	case DimensionGenre:
		return q.Genres
	case DimensionYearPlayed:
		return q.YearsPlayed
	default:
		return nil
	}
}

func nonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}
