// Package tablesort orders table rows by any number of user-selected columns.
//
// Every column carries its own tri-state counter (none, ascending, descending)
// that advances each time its header is clicked. Columns that were clicked
// earlier take precedence; later ones only break ties.
package tablesort

import (
	"strconv"
	"strings"
)

// Order is a column's position in the none → ascending → descending cycle.
type Order int

const (
	None Order = iota
	Ascending
	Descending
)

// Next advances the counter, wrapping descending back to none.
func (o Order) Next() Order {
	return (o + 1) % 3
}

// Arrow is the header indicator for the order.
func (o Order) Arrow() string {
	switch o {
	case Ascending:
		return "↑"
	case Descending:
		return "↓"
	default:
		return ""
	}
}

// Entry is one column's counter inside a State.
type Entry struct {
	Key   string `json:"key"`
	Order Order  `json:"order"`
}

// State lists the columns the user has clicked, in first-click order.
// A column stays in place after cycling back to None so it keeps its
// precedence if clicked again.
type State []Entry

// Toggle returns a copy of s with key advanced by one step. Unseen keys are
// appended as Ascending. Other columns are left untouched.
func (s State) Toggle(key string) State {
	out := make(State, len(s), len(s)+1)
	copy(out, s)
	for i := range out {
		if out[i].Key == key {
			out[i].Order = out[i].Order.Next()
			return out
		}
	}
	return append(out, Entry{Key: key, Order: Ascending})
}

// Order reports the counter for key, None when the key was never clicked.
func (s State) Order(key string) Order {
	for _, e := range s {
		if e.Key == key {
			return e.Order
		}
	}
	return None
}

// Active reports whether any column is currently sorting.
func (s State) Active() bool {
	for _, e := range s {
		if e.Order != None {
			return true
		}
	}
	return false
}

// Encode renders the state for a query string, e.g. "batch.1,quantity.2".
func (s State) Encode() string {
	parts := make([]string, 0, len(s))
	for _, e := range s {
		parts = append(parts, e.Key+"."+strconv.Itoa(int(e.Order)))
	}
	return strings.Join(parts, ",")
}

// ParseState decodes Encode's output. Malformed tokens, out-of-range orders
// and repeated keys are dropped rather than rejected: a bad link never
// breaks the page, it just sorts less.
func ParseState(raw string) State {
	if raw == "" {
		return State{}
	}

	s := State{}
	seen := make(map[string]bool)
	for _, tok := range strings.Split(raw, ",") {
		i := strings.LastIndexByte(tok, '.')
		if i <= 0 || i == len(tok)-1 {
			continue
		}
		key := strings.TrimSpace(tok[:i])
		n, err := strconv.Atoi(tok[i+1:])
		if err != nil || n < int(None) || n > int(Descending) || key == "" || seen[key] {
			continue
		}
		seen[key] = true
		s = append(s, Entry{Key: key, Order: Order(n)})
	}
	return s
}
