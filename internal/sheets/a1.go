package sheets

import (
	"strconv"
	"strings"
)

// ColumnName converts a zero-based column index to its A1 letters
// (0 → A, 25 → Z, 26 → AA).
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var letters []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return string(letters)
}

// QuoteSheetName quotes a worksheet title for use in an A1 range.
func QuoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// CellRange addresses a single cell on sheet, with row numbered from 1.
func CellRange(sheet string, column, row int) string {
	return QuoteSheetName(sheet) + "!" + ColumnName(column) + strconv.Itoa(row)
}

// RowRange addresses an entire row on sheet, with row numbered from 1.
func RowRange(sheet string, row int) string {
	number := strconv.Itoa(row)
	return QuoteSheetName(sheet) + "!" + number + ":" + number
}

// ColumnRange addresses an entire column on sheet.
func ColumnRange(sheet string, column int) string {
	letters := ColumnName(column)
	return QuoteSheetName(sheet) + "!" + letters + ":" + letters
}
