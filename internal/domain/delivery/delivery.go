// Package delivery holds the static delivery pricing table.
package delivery

import (
	"github.com/shopspring/decimal"
)

// Method is one selectable delivery option.
type Method struct {
	ID       string
	Label    string
	ETALabel string
	Fee      decimal.Decimal
}

// Well-known method ids.
const (
	Instant = "instant"
	Fast    = "fast"
	Regular = "regular"
)

// Table is an ordered, read-only list of delivery methods.
type Table struct {
	methods []Method
	byID    map[string]int
}

// NewTable builds a Table preserving the order of methods. Later duplicates
// of an id are ignored.
func NewTable(methods ...Method) *Table {
	t := &Table{byID: make(map[string]int, len(methods))}
	for _, m := range methods {
		if _, ok := t.byID[m.ID]; ok {
			continue
		}
		t.byID[m.ID] = len(t.methods)
		t.methods = append(t.methods, m)
	}
	return t
}

// Default returns the storefront's delivery table. Fees are in the same
// unit as item prices.
func Default() *Table {
	return NewTable(
		Method{ID: Instant, Label: "Instant", ETALabel: "1-2 hours", Fee: decimal.NewFromInt(20000)},
		Method{ID: Fast, Label: "Fast", ETALabel: "1-3 days", Fee: decimal.NewFromInt(12000)},
		Method{ID: Regular, Label: "Regular", ETALabel: "3-5 days", Fee: decimal.NewFromInt(5000)},
	)
}

// Methods returns a copy of the table in display order.
func (t *Table) Methods() []Method {
	out := make([]Method, len(t.methods))
	copy(out, t.methods)
	return out
}

// Lookup returns the method for id. The bool is false for an empty or
// unknown id, which lets callers tell "not chosen" apart from a free method.
func (t *Table) Lookup(id string) (Method, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Method{}, false
	}
	return t.methods[i], true
}

// FeeFor returns the fee for id, or zero when id is empty or unknown.
func (t *Table) FeeFor(id string) decimal.Decimal {
	m, ok := t.Lookup(id)
	if !ok {
		return decimal.Zero
	}
	return m.Fee
}
