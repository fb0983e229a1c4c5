package domain

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lookup resolves unit and item ids to display names. It is built from one
// fetch of the unit and item lists and never changes afterwards.
type Lookup struct {
	units []Unit
	items []Item

	unitByID map[ID]int
	itemByID map[ID]int
}

// NewLookup indexes units by both their public and internal ids.
func NewLookup(units []Unit, items []Item) *Lookup {
	l := &Lookup{
		units:    slices.Clone(units),
		items:    slices.Clone(items),
		unitByID: make(map[ID]int, 2*len(units)),
		itemByID: make(map[ID]int, len(items)),
	}
	for i, u := range l.units {
		l.unitByID[u.ID] = i
		if u.InternalID != "" {
			if _, taken := l.unitByID[u.InternalID]; !taken {
				l.unitByID[u.InternalID] = i
			}
		}
	}
	for i, it := range l.items {
		l.itemByID[it.ID] = i
	}
	return l
}

// Unit finds a unit by id or internal id.
func (l *Lookup) Unit(id ID) (Unit, bool) {
	i, ok := l.unitByID[id]
	if !ok {
		return Unit{}, false
	}
	return l.units[i], true
}

// UnitName returns the unit's name, or the id itself when unknown.
func (l *Lookup) UnitName(id ID) string {
	if u, ok := l.Unit(id); ok {
		return u.Name
	}
	return string(id)
}

// Item finds an item by id.
func (l *Lookup) Item(id ID) (Item, bool) {
	i, ok := l.itemByID[id]
	if !ok {
		return Item{}, false
	}
	return l.items[i], true
}

// ItemName returns the item's name, or fallback with {id} substituted when
// the item is unknown.
func (l *Lookup) ItemName(id ID, fallback string) string {
	if it, ok := l.Item(id); ok {
		return it.Name
	}
	return strings.ReplaceAll(fallback, "{id}", string(id))
}

// Units returns units in the order the API listed them.
func (l *Lookup) Units() []Unit {
	return slices.Clone(l.units)
}

// SortedUnits returns units ordered by name for select boxes.
func (l *Lookup) SortedUnits() []Unit {
	out := slices.Clone(l.units)
	coll := newCollator()
	slices.SortStableFunc(out, func(a, b Unit) int { return coll.CompareString(a.Name, b.Name) })
	return out
}

// SortedItems returns items ordered by name for select boxes.
func (l *Lookup) SortedItems() []Item {
	out := slices.Clone(l.items)
	coll := newCollator()
	slices.SortStableFunc(out, func(a, b Item) int { return coll.CompareString(a.Name, b.Name) })
	return out
}

// SearchItems returns items whose name contains q, ignoring case and
// accents, ordered by name. An empty query matches everything.
func (l *Lookup) SearchItems(q string) []Item {
	needle := Fold(q)
	var out []Item
	for _, it := range l.SortedItems() {
		if strings.Contains(Fold(it.Name), needle) {
			out = append(out, it)
		}
	}
	return out
}

// SearchUnits is SearchItems for units.
func (l *Lookup) SearchUnits(q string) []Unit {
	needle := Fold(q)
	var out []Unit
	for _, u := range l.SortedUnits() {
		if strings.Contains(Fold(u.Name), needle) {
			out = append(out, u)
		}
	}
	return out
}

// Fold lowercases s and strips diacritics, so "Ácido" folds to "acido".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func newCollator() *collate.Collator {
	return collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
}
