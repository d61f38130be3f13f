package core

// convert.go turns raw feed cells into canonical field values.
//
// Supplier feeds are messy: prices come with either decimal separator,
// stock counts may be blank or "N/A", and rows are often shorter than the
// header. Every helper here degrades to a zero value instead of failing,
// except ParseID which is used where a bad value must stop the row.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// HeaderIndex maps column names (lowercase) to their position in a feed row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a feed header row.
// Keys are lowercased for case-insensitive matching. The first occurrence
// of a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Lookup returns the position of name, ignoring case and surrounding whitespace.
func (h HeaderIndex) Lookup(name string) (int, bool) {
	pos, ok := h[strings.ToLower(CleanCell(name))]
	return pos, ok
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Strips a UTF-8 BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	return strings.Trim(s, `"'`)
}

// SafeGet returns row[i], or "" when i is out of range.
func SafeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ParseIntOrZero parses an integer cell, returning 0 for anything unparsable.
func ParseIntOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseDecimalOrZero parses a price cell. Both "19.99" and "19,99" are
// accepted; anything unparsable becomes zero.
func ParseDecimalOrZero(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseID parses a product id cell. Unlike the other numeric helpers a bad
// value is an error.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// AttributeCode derives the normalized attribute key from a display name:
// lowercased, trimmed, spaces replaced with underscores.
func AttributeCode(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// fieldKey normalizes a canonical field name for lookup so that "salePrice",
// "SalePrice" and "sale_price" compare equal.
func fieldKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(name)
}
