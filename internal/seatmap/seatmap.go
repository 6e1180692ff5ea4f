// Package seatmap converts between seat labels such as "A1" or "AB12" and
// zero-based row/column coordinates.  Rows are lettered A..Z, AA..AZ and so
// on; columns are numbered from 1.  Every function here is pure.
package seatmap

import (
	"strconv"
	"strings"
)

// Label size bounds.  Three row letters cover 18278 rows; MaxLabelLen is the
// width of the seat_number column.
const (
	MaxRowLetters = 3
	MaxLabelLen   = 8
)

// RowLabel converts a zero-based row index to an alphabetical label (0 -> A,
// 25 -> Z, 26 -> AA).  Negative indices yield an empty string.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex converts a row label like A or AA into its zero-based index.
// Labels longer than MaxRowLetters are rejected.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" || len(s) > MaxRowLetters {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// Label builds the seat label for a zero-based row and column.
func Label(row, col int) string {
	if row < 0 || col < 0 {
		return ""
	}
	return RowLabel(row) + strconv.Itoa(col+1)
}

// Parse splits a seat label into zero-based row and column.  The label must
// be letters followed by a positive number with no leading zeros.
func Parse(label string) (row, col int, ok bool) {
	s := Normalize(label)
	if len(s) > MaxLabelLen {
		return 0, 0, false
	}
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) || s[i] == '0' {
		return 0, 0, false
	}
	row, ok = RowIndex(s[:i])
	if !ok {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return row, n - 1, true
}

// Normalize upper-cases a label and strips surrounding whitespace.
func Normalize(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// Layout lists every seat label for a vehicle with total seats arranged
// perRow to a row.  The last row may be partial.
func Layout(total, perRow int) []string {
	if total <= 0 || perRow <= 0 {
		return []string{}
	}
	out := make([]string, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, Label(i/perRow, i%perRow))
	}
	return out
}

// Valid reports whether label names a seat that exists in the layout.
func Valid(label string, total, perRow int) bool {
	if total <= 0 || perRow <= 0 {
		return false
	}
	row, col, ok := Parse(label)
	if !ok || col >= perRow || row >= total {
		return false
	}
	return row*perRow+col < total
}
