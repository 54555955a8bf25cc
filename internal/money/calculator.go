// Package money computes voucher totals with fixed-point semantics.
//
// Every subtotal is rounded half-up to two decimal places before summing, so
// the grand total always equals the exact sum of the stored subtotals.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/voucher-service/internal/domain"
	"github.com/spec-kit/voucher-service/pkg/util"
)

// RawLineItem is a line item as received from a caller, before numeric
// validation. Absent qty/unit default to zero; non-numeric values are
// rejected rather than coerced.
type RawLineItem struct {
	Type string          `json:"type"`
	Qty  json.RawMessage `json:"qty"`
	Unit json.RawMessage `json:"unit"`
}

// ParseLineItems validates raw line items into domain line items.
func ParseLineItems(raw []RawLineItem) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(raw))
	for i, r := range raw {
		qty, err := parseAmount(r.Qty)
		if err != nil {
			return nil, util.NewInvalidLineItem(
				fmt.Sprintf("item %d: qty is not a number", i),
				map[string]any{"index": i, "field": "qty"})
		}
		unit, err := parseAmount(r.Unit)
		if err != nil {
			return nil, util.NewInvalidLineItem(
				fmt.Sprintf("item %d: unit is not a number", i),
				map[string]any{"index": i, "field": "unit"})
		}
		items = append(items, domain.LineItem{Type: r.Type, Qty: qty, Unit: unit})
	}
	return items, nil
}

// Calculate derives per-item subtotals and the grand total. The result
// preserves order and length of the input. Pure; no side effects.
func Calculate(items []domain.LineItem) ([]domain.UnitTotal, decimal.Decimal) {
	unitTotals := make([]domain.UnitTotal, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		subtotal := item.Qty.Mul(item.Unit).Round(2)
		unitTotals = append(unitTotals, domain.UnitTotal{Type: item.Type, Subtotal: subtotal})
		total = total.Add(subtotal)
	}
	return unitTotals, total
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}
