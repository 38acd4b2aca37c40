package games

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustNormalize(t *testing.T, row Row) Record {
	t.Helper()
	record, ok := Normalize(row)
	if !ok {
		t.Fatalf("expected row %v to normalize", row)
	}
	return record
}

func TestDedupeCollapsesByNormalizedTitle(t *testing.T) {
	records := []Record{
		mustNormalize(t, Row{"Title": "Hollow Knight", "Platform": "PC"}),
		mustNormalize(t, Row{"Title": "Celeste"}),
		mustNormalize(t, Row{"Title": "  hollow KNIGHT ", "Platform": "Switch"}),
	}

	merged := Dedupe(records)
	if len(merged) != 2 {
		t.Fatalf("expected 2 records, got %d", len(merged))
	}
	if merged[0].Title != "Hollow Knight" {
		t.Fatalf("expected first occurrence to keep its title, got %q", merged[0].Title)
	}
	if merged[1].Title != "Celeste" {
		t.Fatalf("expected feed order to be preserved, got %q", merged[1].Title)
	}
	if diff := cmp.Diff([]string{"PC", "Switch"}, merged[0].Platforms); diff != "" {
		t.Fatalf("unexpected platforms (-want +got):\n%s", diff)
	}
}

func TestMergeTagListsAreOrderIndependent(t *testing.T) {
	first := mustNormalize(t, Row{"Title": "Hades", "Platforms": "Switch, PC", "Genres": "Roguelike", "Year Played": "2021"})
	second := mustNormalize(t, Row{"Title": "hades", "Platforms": "PS5,PC", "Genres": "Action|Roguelike", "Year Played": "2020"})

	forward := Dedupe([]Record{first, second})[0]
	backward := Dedupe([]Record{second, first})[0]

	expectedPlatforms := []string{"PC", "PS5", "Switch"}
	expectedGenres := []string{"Action", "Roguelike"}
	expectedYears := []string{"2020", "2021"}
	for _, merged := range []Record{forward, backward} {
		if diff := cmp.Diff(expectedPlatforms, merged.Platforms); diff != "" {
			t.Fatalf("unexpected platforms (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(expectedGenres, merged.Genres); diff != "" {
			t.Fatalf("unexpected genres (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(expectedYears, merged.YearPlayed); diff != "" {
			t.Fatalf("unexpected years (-want +got):\n%s", diff)
		}
	}
}

func TestMergeTagsAreCaseSensitive(t *testing.T) {
	merged := Dedupe([]Record{
		mustNormalize(t, Row{"Title": "Tetris", "Platforms": "pc"}),
		mustNormalize(t, Row{"Title": "Tetris", "Platforms": "PC"}),
	})[0]
	if diff := cmp.Diff([]string{"PC", "pc"}, merged.Platforms); diff != "" {
		t.Fatalf("unexpected platforms (-want +got):\n%s", diff)
	}
}

func TestMergeFlagsUseLogicalOr(t *testing.T) {
	tests := []struct {
		name      string
		first     string
		second    string
		expected  string
		completed bool
	}{
		{name: "yes-and-empty", first: "yes", second: "", expected: CanonicalTruthy, completed: true},
		{name: "empty-and-checked", first: "", second: "checked", expected: CanonicalTruthy, completed: true},
		{name: "both-falsy", first: "no", second: "", expected: "", completed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][2]string{{tt.first, tt.second}, {tt.second, tt.first}} {
				merged := Dedupe([]Record{
					mustNormalize(t, Row{"Title": "Portal", "Completed": order[0], "Backlog": order[0]}),
					mustNormalize(t, Row{"Title": "Portal", "Completed": order[1], "Backlog": order[1]}),
				})[0]
				if merged.Completed != tt.expected {
					t.Fatalf("completed mismatch: want %q got %q", tt.expected, merged.Completed)
				}
				if merged.IsCompleted() != tt.completed {
					t.Fatalf("completed flag mismatch: want %v", tt.completed)
				}
				if merged.Backlog != tt.expected {
					t.Fatalf("backlog mismatch: want %q got %q", tt.expected, merged.Backlog)
				}
			}
		})
	}
}

func TestMergeDates(t *testing.T) {
	tests := []struct {
		name              string
		first             Row
		second            Row
		wantRelease       string
		wantAdded         string
		wantDateCompleted string
	}{
		{
			name:              "earlier-release-later-completion",
			first:             Row{"Release Date": "2020-01-01", "Date Added": "2022-05-01", "Date Completed": "2020-01-01"},
			second:            Row{"Release Date": "2019-06-01", "Date Added": "2021-05-01", "Date Completed": "2021-06-01"},
			wantRelease:       "2019-06-01",
			wantAdded:         "2021-05-01",
			wantDateCompleted: "2021-06-01",
		},
		{
			name:              "only-incoming-parses",
			first:             Row{"Release Date": "someday", "Date Completed": ""},
			second:            Row{"Release Date": "2018-03-03", "Date Completed": "2019-09-09"},
			wantRelease:       "2018-03-03",
			wantDateCompleted: "2019-09-09",
		},
		{
			name:              "only-existing-parses",
			first:             Row{"Release Date": "2018-03-03", "Date Completed": "2019-09-09"},
			second:            Row{"Release Date": "TBA", "Date Completed": "unknown"},
			wantRelease:       "2018-03-03",
			wantDateCompleted: "2019-09-09",
		},
		{
			name:              "neither-parses-keeps-existing",
			first:             Row{"Release Date": "TBA"},
			second:            Row{"Release Date": "soon"},
			wantRelease:       "TBA",
			wantDateCompleted: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.first["Title"] = "Outer Wilds"
			tt.second["Title"] = "outer wilds"
			merged := Dedupe([]Record{mustNormalize(t, tt.first), mustNormalize(t, tt.second)})[0]
			if merged.ReleaseDate != tt.wantRelease {
				t.Fatalf("release mismatch: want %q got %q", tt.wantRelease, merged.ReleaseDate)
			}
			if merged.DateAdded != tt.wantAdded {
				t.Fatalf("date added mismatch: want %q got %q", tt.wantAdded, merged.DateAdded)
			}
			if merged.DateCompleted != tt.wantDateCompleted {
				t.Fatalf("date completed mismatch: want %q got %q", tt.wantDateCompleted, merged.DateCompleted)
			}
		})
	}
}

func TestMergeDatesAreOrderIndependentAcrossThreeRows(t *testing.T) {
	rows := []Row{
		{"Title": "Tunic", "Release Date": "2022-03-16", "Date Completed": "2022-04-01"},
		{"Title": "Tunic", "Release Date": "2021-01-01", "Date Completed": ""},
		{"Title": "Tunic", "Release Date": "", "Date Completed": "2023-01-10"},
	}
	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, permutation := range permutations {
		records := make([]Record, 0, len(rows))
		for _, index := range permutation {
			records = append(records, mustNormalize(t, rows[index]))
		}
		merged := Dedupe(records)[0]
		if merged.ReleaseDate != "2021-01-01" {
			t.Fatalf("permutation %v: unexpected release %q", permutation, merged.ReleaseDate)
		}
		if merged.DateCompleted != "2023-01-10" {
			t.Fatalf("permutation %v: unexpected completion %q", permutation, merged.DateCompleted)
		}
	}
}

func TestMergeScalarsFirstNonEmptyWins(t *testing.T) {
	merged := Dedupe([]Record{
		mustNormalize(t, Row{"Title": "Control", "Status": "Queued", "Ownership": "", "Cover URL": "", "Developer": "Remedy"}),
		mustNormalize(t, Row{"Title": "Control", "Status": "Now Playing", "Ownership": "Owned", "Cover URL": "https://c.example/x.png", "Developer": "505"}),
		mustNormalize(t, Row{"Title": "Control", "Ownership": "Wishlist", "Cover URL": "https://c.example/y.png"}),
	})[0]

	if merged.Status != "Queued" {
		t.Fatalf("expected first status to win, got %q", merged.Status)
	}
	if merged.Ownership != "Owned" {
		t.Fatalf("expected first non-empty ownership, got %q", merged.Ownership)
	}
	if merged.CoverURL != "https://c.example/x.png" {
		t.Fatalf("expected first non-empty cover, got %q", merged.CoverURL)
	}
	if merged.Developer != "Remedy" {
		t.Fatalf("expected first developer, got %q", merged.Developer)
	}
}

func TestNewCatalogIsIdempotent(t *testing.T) {
	rows := []Row{
		{"Title": "Hades", "Platforms": "PC"},
		{"Title": "hades", "Platforms": "Switch", "Completed": "yes"},
	}
	first := NewCatalogFromRows(rows)
	second := NewCatalogFromRows(rows)
	if diff := cmp.Diff(first.Records(), second.Records()); diff != "" {
		t.Fatalf("expected identical working sets (-first +second):\n%s", diff)
	}
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalogFromRows([]Row{{"Title": "Disco Elysium"}})
	record, ok := catalog.Lookup("  DISCO elysium")
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if record.Title != "Disco Elysium" {
		t.Fatalf("unexpected record %q", record.Title)
	}
	if _, ok := catalog.Lookup("missing"); ok {
		t.Fatalf("expected missing lookup to fail")
	}
}

func TestCatalogRecordsAreCopies(t *testing.T) {
	catalog := NewCatalogFromRows([]Row{{"Title": "Hades", "Platforms": "PC"}})
	records := catalog.Records()
	records[0].Platforms[0] = "mutated"
	if catalog.Records()[0].Platforms[0] != "PC" {
		t.Fatalf("expected working set to be immutable")
	}
}
