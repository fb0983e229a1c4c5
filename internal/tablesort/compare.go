package tablesort

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DateLayout lists the time layouts accepted for a date column, tried in order.
type DateLayout []string

var (
	// ISOTimestamp covers the upstream's event timestamps. The API also
	// serialises some of them in HTTP date form.
	ISOTimestamp = DateLayout{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999", "2006-01-02", time.RFC1123, time.RFC1123Z}
	// ISODate covers expiry dates sent as calendar days.
	ISODate = DateLayout{"2006-01-02", time.RFC3339Nano, "2006-01-02T15:04:05", time.RFC1123, time.RFC1123Z}
	// DayMonthYear covers dates already formatted for Brazilian display.
	DayMonthYear = DateLayout{"02/01/2006", "2/1/2006", "02/01/2006 15:04:05", "02/01/2006, 15:04:05"}
)

// oldest is what an unparsable date sorts as.
var oldest = time.Time{}

// Parse returns the first successful parse, or the oldest instant. Values
// without a zone are read as UTC.
func (l DateLayout) Parse(s string) time.Time {
	return l.ParseIn(s, time.UTC)
}

// ParseIn is Parse with values that carry no zone read as wall clock time
// in loc.
func (l DateLayout) ParseIn(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return oldest
	}
	for _, layout := range l {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return oldest
}

// Comparer carries the per-sort state shared by column comparators.
// A collator is not safe for concurrent use, so each Sort call gets its own.
type Comparer struct {
	coll  *collate.Collator
	dates map[dateKey]time.Time
}

type dateKey struct {
	layout string
	value  string
}

// NewComparer builds a comparer collating Brazilian Portuguese text with case
// and diacritics folded, so "Ácido" and "acido" sort together.
func NewComparer() *Comparer {
	return &Comparer{
		coll:  collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics),
		dates: make(map[dateKey]time.Time),
	}
}

// Strings compares two texts by collation order.
func (c *Comparer) Strings(a, b string) int {
	return c.coll.CompareString(a, b)
}

// Numbers compares two numbers; NaN compares equal to anything.
func (c *Comparer) Numbers(a, b float64) int {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return 0
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Dates compares two date strings under layout. Parses are memoised for the
// lifetime of the comparer since each row takes part in many comparisons.
func (c *Comparer) Dates(layout DateLayout, a, b string) int {
	ta, tb := c.date(layout, a), c.date(layout, b)
	return ta.Compare(tb)
}

func (c *Comparer) date(layout DateLayout, s string) time.Time {
	var k dateKey
	k.value = s
	if len(layout) > 0 {
		k.layout = layout[0]
	}
	if t, ok := c.dates[k]; ok {
		return t
	}
	t := layout.Parse(s)
	c.dates[k] = t
	return t
}
