package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortDirection orders non-null keys
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// ParseSortDirection accepts "asc"/"desc" (case-insensitive); empty means ascending
func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending", "1":
		return Ascending, true
	case "desc", "descending", "-1":
		return Descending, true
	default:
		return Ascending, false
	}
}

type keyKind uint8

const (
	kindNull keyKind = iota
	kindNumber
	kindString
)

// SortKey is the value a record is ordered by: null, a number or a string.
type SortKey struct {
	kind keyKind
	num  decimal.Decimal
	str  string
}

// NullKey is the absent value; it sorts before everything else in both directions
func NullKey() SortKey { return SortKey{} }

// NumberKey orders by magnitude
func NumberKey(d decimal.Decimal) SortKey { return SortKey{kind: kindNumber, num: d} }

// StringKey orders by en-US collation
func StringKey(s string) SortKey { return SortKey{kind: kindString, str: s} }

// DecimalKey parses s as a number; empty or unparseable input is null
func DecimalKey(s string) SortKey {
	if s == "" {
		return NullKey()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return NullKey()
	}
	return NumberKey(d)
}

// IsNull reports whether the key is the absent value
func (k SortKey) IsNull() bool { return k.kind == kindNull }

type keyed[T any] struct {
	rec T
	key SortKey
}

// SortBy returns a new slice ordered by extract. Equal keys keep their input order.
// Null keys always come first; dir only flips the order of two non-null keys.
func SortBy[T any](records []T, extract func(T) SortKey, dir SortDirection) []T {
	if dir != Descending {
		dir = Ascending
	}

	items := make([]keyed[T], len(records))
	for i, r := range records {
		items[i] = keyed[T]{rec: r, key: extract(r)}
	}

	col := collate.New(language.AmericanEnglish)
	sort.SliceStable(items, func(i, j int) bool {
		return compareKeys(col, items[i].key, items[j].key, dir) < 0
	})

	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

func compareKeys(col *collate.Collator, a, b SortKey, dir SortDirection) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}

	var c int
	switch {
	case a.kind == kindNumber && b.kind == kindNumber:
		c = a.num.Cmp(b.num)
	case a.kind == kindString && b.kind == kindString:
		c = col.CompareString(a.str, b.str)
	case a.kind == kindNumber:
		// numbers before strings
		c = -1
	default:
		c = 1
	}
	return c * int(dir)
}
