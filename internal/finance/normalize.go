// Package finance holds the pure financial logic of the reconciliation
// engine: breakdown normalization and quantity/price/total derivation.
// Nothing in this package performs IO.
package finance

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// toNumber coerces a decoded JSON value to a finite float64.
// Strings are parsed; NaN and Infinity are treated as absent.
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberPtr(v interface{}) *float64 {
	if f, ok := toNumber(v); ok {
		return &f
	}
	return nil
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	}
	return false
}

// NormalizeBreakdown parses a financial breakdown given as a structured
// object, a decoded map, or a serialized JSON form. Unparsable or non-object
// input yields nil; the caller then defaults to an empty breakdown rather
// than treating it as an error.
func NormalizeBreakdown(raw interface{}) *domain.FinancialBreakdown {
	switch v := raw.(type) {
	case nil:
		return nil
	case *domain.FinancialBreakdown:
		if v == nil {
			return nil
		}
		cp := *v
		return &cp
	case domain.FinancialBreakdown:
		cp := v
		return &cp
	case map[string]interface{}:
		return breakdownFromMap(v)
	case json.RawMessage:
		return normalizeRawJSON([]byte(v))
	case []byte:
		return normalizeRawJSON(v)
	case string:
		return normalizeRawJSON([]byte(v))
	}
	return nil
}

func normalizeRawJSON(data []byte) *domain.FinancialBreakdown {
	if len(data) == 0 {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	switch v := decoded.(type) {
	case map[string]interface{}:
		return breakdownFromMap(v)
	case string:
		// Serialized-within-JSON form: unwrap once and re-parse.
		return normalizeRawJSON([]byte(v))
	}
	return nil
}

func breakdownFromMap(m map[string]interface{}) *domain.FinancialBreakdown {
	b := &domain.FinancialBreakdown{}

	if charges, ok := m["charges"].(map[string]interface{}); ok {
		b.Charges.Freight = chargeFromMap(charges["freight"])
		b.Charges.Packing = chargeFromMap(charges["packing"])
		b.Charges.Customs = chargeFromMap(charges["customs"])
		b.Charges.Other = chargeFromMap(charges["other"])
	}

	if taxes, ok := m["sales_taxes"].([]interface{}); ok {
		for _, raw := range taxes {
			tier, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			b.SalesTaxes = append(b.SalesTaxes, domain.TaxLine{
				Percentage: numberPtr(tier["percentage"]),
				Amount:     numberPtr(tier["amount"]),
			})
			// At most two tax tiers are supported.
			if len(b.SalesTaxes) == 2 {
				break
			}
		}
	}

	if totals, ok := m["totals"].(map[string]interface{}); ok {
		b.Totals.ItemTotal = numberPtr(totals["item_total"])
		b.Totals.ChargesTotal = numberPtr(totals["charges_total"])
		b.Totals.TaxTotal = numberPtr(totals["tax_total"])
		b.Totals.GrandTotal = numberPtr(totals["grand_total"])
	}

	return b
}

func chargeFromMap(raw interface{}) domain.ChargeLine {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return domain.ChargeLine{}
	}
	return domain.ChargeLine{
		Percentage: numberPtr(m["percentage"]),
		Amount:     numberPtr(m["amount"]),
		Taxable:    toBool(m["taxable"]),
	}
}

// ApplyTotals normalizes the document's raw breakdown and projects its totals
// onto the flat fields. A flat field is only overwritten when the breakdown
// carries a finite value for it; absent or non-numeric source values leave
// the existing flat field untouched, so a partial response never zeroes the
// stored totals. Returns the normalized breakdown, or nil when the raw
// payload could not be parsed.
func ApplyTotals(flat *domain.FlatTotals, raw json.RawMessage) *domain.FinancialBreakdown {
	b := NormalizeBreakdown(raw)
	if b == nil {
		return nil
	}
	if b.Totals.ItemTotal != nil {
		flat.ItemTotal = copyFloat(b.Totals.ItemTotal)
	}
	if b.Totals.ChargesTotal != nil {
		flat.ChargesTotal = copyFloat(b.Totals.ChargesTotal)
	}
	if b.Totals.TaxTotal != nil {
		flat.TaxTotal = copyFloat(b.Totals.TaxTotal)
	}
	if b.Totals.GrandTotal != nil {
		flat.GrandTotal = copyFloat(b.Totals.GrandTotal)
	}
	return b
}

// ComputeBreakdown recomputes a breakdown's derived values for the given
// aggregate item total: charge amounts from their percentages where no
// explicit amount is set, the tax base as item total plus taxable charges,
// and the charges/tax/grand totals. The input breakdown is not mutated.
func ComputeBreakdown(itemTotal float64, b *domain.FinancialBreakdown) domain.FinancialBreakdown {
	var out domain.FinancialBreakdown
	if b != nil {
		out = *b
	}

	out.Charges.Freight = computeCharge(itemTotal, out.Charges.Freight)
	out.Charges.Packing = computeCharge(itemTotal, out.Charges.Packing)
	out.Charges.Customs = computeCharge(itemTotal, out.Charges.Customs)
	out.Charges.Other = computeCharge(itemTotal, out.Charges.Other)

	chargesTotal := 0.0
	taxableBase := itemTotal
	for _, c := range []domain.ChargeLine{out.Charges.Freight, out.Charges.Packing, out.Charges.Customs, out.Charges.Other} {
		if c.Amount == nil {
			continue
		}
		chargesTotal += *c.Amount
		if c.Taxable {
			taxableBase += *c.Amount
		}
	}
	chargesTotal = RoundMoney(chargesTotal)

	taxTotal := 0.0
	taxes := out.SalesTaxes
	if len(taxes) > 2 {
		taxes = taxes[:2]
	}
	computed := make([]domain.TaxLine, len(taxes))
	for i, tier := range taxes {
		if tier.Percentage != nil {
			amount := RoundMoney(taxableBase * *tier.Percentage / 100)
			tier.Amount = &amount
		}
		if tier.Amount != nil {
			taxTotal += *tier.Amount
		}
		computed[i] = tier
	}
	out.SalesTaxes = computed
	taxTotal = RoundMoney(taxTotal)

	grand := RoundMoney(itemTotal + chargesTotal + taxTotal)
	item := RoundMoney(itemTotal)
	out.Totals = domain.BreakdownTotals{
		ItemTotal:    &item,
		ChargesTotal: &chargesTotal,
		TaxTotal:     &taxTotal,
		GrandTotal:   &grand,
	}
	return out
}

func computeCharge(itemTotal float64, c domain.ChargeLine) domain.ChargeLine {
	if c.Amount == nil && c.Percentage != nil {
		amount := RoundMoney(itemTotal * *c.Percentage / 100)
		c.Amount = &amount
	}
	return c
}

// EncodeBreakdown serializes a breakdown back into the raw document field.
func EncodeBreakdown(b *domain.FinancialBreakdown) json.RawMessage {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	return data
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
