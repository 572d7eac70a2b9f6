package pricing

import (
	"fmt"
	"math"
)

// Snapshot is the pricing configuration read once per calculation.
// Passing it by value keeps Quote pure and trivially testable.
type Snapshot struct {
	TaxRate     float64
	AddonPrices map[string]float64
}

// LineItem is one charged line on a work order.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Discount is either a percentage or a flat amount, never both.
type Discount struct {
	Percent float64 `json:"percent,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
}

// QuoteRequest is the input to a quote calculation.
type QuoteRequest struct {
	Items    []LineItem `json:"items"`
	Addons   []string   `json:"addons,omitempty"`
	Discount Discount   `json:"discount"`
}

// QuoteResult is the fully broken-down quote.
type QuoteResult struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountApplied float64 `json:"discount_applied"`
	Taxable         float64 `json:"taxable"`
	Tax             float64 `json:"tax"`
	Total           float64 `json:"total"`
}

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Quote computes a work-order quote from a pricing snapshot.
func Quote(snap Snapshot, req QuoteRequest) (QuoteResult, error) {
	subtotal := 0.0
	for i, item := range req.Items {
		if item.Amount < 0 {
			return QuoteResult{}, &ValidationError{
				fmt.Sprintf("items[%d].amount", i), "must not be negative"}
		}
		subtotal += item.Amount
	}
	for _, key := range req.Addons {
		price, ok := snap.AddonPrices[key]
		if !ok {
			return QuoteResult{}, &ValidationError{"addons", fmt.Sprintf("unknown addon %q", key)}
		}
		subtotal += price
	}
	subtotal = roundCents(subtotal)

	discount, err := discountAmount(req.Discount, subtotal)
	if err != nil {
		return QuoteResult{}, err
	}

	taxable := roundCents(subtotal - discount)
	tax := roundCents(taxable * snap.TaxRate)

	return QuoteResult{
		Subtotal:        subtotal,
		DiscountApplied: discount,
		Taxable:         taxable,
		Tax:             tax,
		Total:           roundCents(taxable + tax),
	}, nil
}

func discountAmount(d Discount, subtotal float64) (float64, error) {
	if d.Percent != 0 && d.Amount != 0 {
		return 0, &ValidationError{"discount", "specify either percent or amount, not both"}
	}
	if d.Percent != 0 {
		if d.Percent < 0 || d.Percent > 100 {
			return 0, &ValidationError{"discount.percent", "must be between 0 and 100"}
		}
		return roundCents(subtotal * d.Percent / 100), nil
	}
	if d.Amount != 0 {
		if d.Amount < 0 {
			return 0, &ValidationError{"discount.amount", "must not be negative"}
		}
		if d.Amount > subtotal {
			return 0, &ValidationError{"discount.amount",
				fmt.Sprintf("%.2f exceeds subtotal %.2f", d.Amount, subtotal)}
		}
		return roundCents(d.Amount), nil
	}
	return 0, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
