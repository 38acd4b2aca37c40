package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/playshelf/internal/games"
)

const byteOrderMark = "\ufeff"

var errMissingHeaderRow = errors.New("feed: document has no header row")

// ParseCSV reads a comma-separated document whose first row holds column
// headers and returns one Row per data line.
func ParseCSV(reader io.Reader) ([]games.Row, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errMissingHeaderRow
	}
	if err != nil {
		return nil, fmt.Errorf("feed: read header: %w", err)
	}
	columns := make([]string, len(header))
	for index, name := range header {
		if index == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		columns[index] = strings.TrimSpace(name)
	}

	rows := make([]games.Row, 0)
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: read row: %w", err)
		}
		row := make(games.Row, len(columns))
		for index, column := range columns {
			if column == "" || index >= len(record) {
				continue
			}
			if _, exists := row[column]; exists {
				continue
			}
			row[column] = record[index]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
