// Package lineitems computes estimate line totals and aggregates, and provides
// the editing operations used when a quote is authored. Every operation
// returns a fresh slice with recomputed line totals.
package lineitems

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/example/pool-backoffice/internal/money"
)

var (
	// ErrLastItem is returned when removing the only remaining item.
	ErrLastItem = errors.New("lineitems: an estimate must keep at least one line item")
	// ErrItemNotFound is returned when an id does not match any item.
	ErrItemNotFound = errors.New("lineitems: line item not found")
)

// Limits accepted by Validate. Together with a tax rate below 1 they keep
// every total Compute can produce inside int64 cents.
const (
	MaxItems          = 500
	MaxQuantity       = 100_000
	MaxUnitPriceCents = 10_000_000_000
)

// Item is a single priced line of an estimate.
type Item struct {
	ID             string
	Description    string
	Quantity       float64
	UnitPriceCents int64
	TotalCents     int64
}

// Totals are the derived aggregate amounts of an estimate.
type Totals struct {
	SubtotalCents  int64
	TaxAmountCents int64
	TotalCents     int64
}

// Patch carries the editable fields of one item. Nil fields are unchanged.
type Patch struct {
	Description    *string
	Quantity       *float64
	UnitPriceCents *int64
}

// LineTotal returns round(quantity * unitPriceCents).
func LineTotal(quantity float64, unitPriceCents int64) int64 {
	return money.MulRound(quantity, unitPriceCents)
}

// Compute derives subtotal, tax and total from the items. Stored item totals
// are ignored and recomputed.
func Compute(items []Item, taxRate float64) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += LineTotal(item.Quantity, item.UnitPriceCents)
	}
	tax := money.ApplyRate(subtotal, taxRate)
	return Totals{
		SubtotalCents:  subtotal,
		TaxAmountCents: tax,
		TotalCents:     subtotal + tax,
	}
}

// Recalculate returns a copy of items with every TotalCents recomputed.
func Recalculate(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.TotalCents = LineTotal(item.Quantity, item.UnitPriceCents)
		out[i] = item
	}
	return out
}

// Add appends a zeroed item with the given id.
func Add(items []Item, id string) []Item {
	out := Recalculate(items)
	return append(out, Item{ID: id})
}

// Remove drops the item with the given id.
func Remove(items []Item, id string) ([]Item, error) {
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if len(items) <= 1 {
		return nil, ErrLastItem
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return Recalculate(out), nil
}

// Update applies patch to the item with the given id.
func Update(items []Item, id string, patch Patch) ([]Item, error) {
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	out := Recalculate(items)
	item := out[idx]
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.UnitPriceCents != nil {
		item.UnitPriceCents = *patch.UnitPriceCents
	}
	item.TotalCents = LineTotal(item.Quantity, item.UnitPriceCents)
	out[idx] = item
	return out, nil
}

// Clone deep-copies items, assigning each copy a fresh id from newID.
func Clone(items []Item, newID func() string) []Item {
	out := Recalculate(items)
	for i := range out {
		out[i].ID = newID()
	}
	return out
}

// AssignMissingIDs fills empty ids from newID.
func AssignMissingIDs(items []Item, newID func() string) []Item {
	out := Recalculate(items)
	for i := range out {
		if strings.TrimSpace(out[i].ID) == "" {
			out[i].ID = newID()
		}
	}
	return out
}

// Validate checks the list and returns field-keyed problems. Keys look like
// "line_items" or "line_items[2].quantity". An empty map means valid.
func Validate(items []Item) map[string]string {
	problems := make(map[string]string)
	if len(items) == 0 {
		problems["line_items"] = "at least one line item is required"
		return problems
	}
	if len(items) > MaxItems {
		problems["line_items"] = fmt.Sprintf("at most %d line items are allowed", MaxItems)
		return problems
	}

	seen := make(map[string]int, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		id := strings.TrimSpace(item.ID)
		switch {
		case id == "":
			problems[prefix+".id"] = "is required"
		case uuid.Validate(id) != nil:
			problems[prefix+".id"] = "must be a UUID"
		default:
			if first, dup := seen[strings.ToLower(id)]; dup {
				problems[prefix+".id"] = fmt.Sprintf("duplicates line_items[%d]", first)
			} else {
				seen[strings.ToLower(id)] = i
			}
		}
		if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
			problems[prefix+".quantity"] = "must be a finite number"
		} else if item.Quantity < 0 {
			problems[prefix+".quantity"] = "must not be negative"
		} else if item.Quantity > MaxQuantity {
			problems[prefix+".quantity"] = fmt.Sprintf("must be at most %d", MaxQuantity)
		}
		if item.UnitPriceCents < 0 {
			problems[prefix+".unit_price_cents"] = "must not be negative"
		} else if item.UnitPriceCents > MaxUnitPriceCents {
			problems[prefix+".unit_price_cents"] = "must be at most " + money.FormatCurrency(MaxUnitPriceCents)
		}
		if len(item.Description) > 1000 {
			problems[prefix+".description"] = "must be at most 1000 characters"
		}
	}
	return problems
}

func indexOf(items []Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
