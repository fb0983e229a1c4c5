package tablesort

import (
	"slices"
	"strconv"
)

// Column describes one table column over rows of type R.
type Column[R any] struct {
	Key string
	// Label is an i18n message key for the header.
	Label string
	// Cell renders the column's value for display.
	Cell func(R) string

	// compare returns the ascending comparison, zero when the rows are
	// equal on this column or a required value is missing.
	compare func(c *Comparer, a, b R) int
}

// StringColumn compares text by Portuguese collation. Rows where get reports
// the value as absent compare equal on this column.
func StringColumn[R any](key, label string, get func(R) (string, bool)) Column[R] {
	return Column[R]{
		Key:   key,
		Label: label,
		Cell: func(r R) string {
			v, _ := get(r)
			return v
		},
		compare: func(c *Comparer, a, b R) int {
			va, okA := get(a)
			vb, okB := get(b)
			if !okA || !okB {
				return 0
			}
			return c.Strings(va, vb)
		},
	}
}

// NumberColumn compares quantities numerically. Absent values compare equal
// and render empty.
func NumberColumn[R any](key, label string, get func(R) (float64, bool)) Column[R] {
	return Column[R]{
		Key:   key,
		Label: label,
		Cell: func(r R) string {
			v, ok := get(r)
			if !ok {
				return ""
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
		compare: func(c *Comparer, a, b R) int {
			va, okA := get(a)
			vb, okB := get(b)
			if !okA || !okB {
				return 0
			}
			return c.Numbers(va, vb)
		},
	}
}

// DateColumn parses both sides with layout before comparing. Missing or
// unparsable dates sort as the oldest instant instead of being skipped.
func DateColumn[R any](key, label string, layout DateLayout, get func(R) string) Column[R] {
	return Column[R]{
		Key:   key,
		Label: label,
		Cell:  get,
		compare: func(c *Comparer, a, b R) int {
			return c.Dates(layout, get(a), get(b))
		},
	}
}

// WithCell overrides how the column renders without touching how it sorts.
func (col Column[R]) WithCell(cell func(R) string) Column[R] {
	col.Cell = cell
	return col
}

// Table is the fixed column set for one row shape.
type Table[R any] struct {
	columns []Column[R]
	index   map[string]int
}

// NewTable builds a table; column keys must be unique.
func NewTable[R any](cols ...Column[R]) *Table[R] {
	t := &Table[R]{columns: cols, index: make(map[string]int, len(cols))}
	for i, col := range cols {
		t.index[col.Key] = i
	}
	return t
}

// Columns returns the columns in display order.
func (t *Table[R]) Columns() []Column[R] {
	return t.columns
}

// Column looks a column up by key.
func (t *Table[R]) Column(key string) (Column[R], bool) {
	i, ok := t.index[key]
	if !ok {
		return Column[R]{}, false
	}
	return t.columns[i], true
}

// Cells renders one row in display order.
func (t *Table[R]) Cells(row R) []string {
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		if col.Cell != nil {
			cells[i] = col.Cell(row)
		}
	}
	return cells
}

type activeKey[R any] struct {
	compare    func(c *Comparer, a, b R) int
	descending bool
}

// Sort returns a new, stably ordered slice; rows is not modified. Keys are
// consulted in state order and the first non-zero comparison decides. Keys
// at None and keys the table does not know are skipped.
func Sort[R any](rows []R, state State, table *Table[R]) []R {
	out := make([]R, len(rows))
	copy(out, rows)

	var keys []activeKey[R]
	for _, e := range state {
		if e.Order == None {
			continue
		}
		col, ok := table.Column(e.Key)
		if !ok || col.compare == nil {
			continue
		}
		keys = append(keys, activeKey[R]{compare: col.compare, descending: e.Order == Descending})
	}
	if len(keys) == 0 || len(out) < 2 {
		return out
	}

	c := NewComparer()
	slices.SortStableFunc(out, func(a, b R) int {
		for _, k := range keys {
			r := k.compare(c, a, b)
			if r == 0 {
				continue
			}
			if k.descending {
				return -r
			}
			return r
		}
		return 0
	})
	return out
}

// Header is the rendered state of one column header.
type Header struct {
	Key   string
	Label string
	Order Order
	Arrow string
	// Href links to the page with this column toggled.
	Href string
}

// Headers renders column headers for state. link turns the state that a
// click would produce into a URL.
func (t *Table[R]) Headers(state State, link func(State) string) []Header {
	headers := make([]Header, len(t.columns))
	for i, col := range t.columns {
		order := state.Order(col.Key)
		headers[i] = Header{
			Key:   col.Key,
			Label: col.Label,
			Order: order,
			Arrow: order.Arrow(),
			Href:  link(state.Toggle(col.Key)),
		}
	}
	return headers
}
