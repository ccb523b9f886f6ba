package service

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

var one = decimal.NewFromInt(1)

// LineTotal computes an item's total as
// (price_per_unit - discount_flat) * quantity * (1 - discount_rate).
//
// The flat discount is per unit and the two discounts compose
// multiplicatively. Nothing is clamped, so a flat discount above the unit
// price yields a negative total.
func LineTotal(pricePerUnit float64, quantity int, discountFlat, discountRate float64) decimal.Decimal {
	unit := decimal.NewFromFloat(pricePerUnit).Sub(decimal.NewFromFloat(discountFlat))
	return unit.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(one.Sub(decimal.NewFromFloat(discountRate)))
}

// LineTotalFloat is LineTotal in plain float64 arithmetic, matching what the
// taproom API computes. Prefer LineTotal for display.
func LineTotalFloat(pricePerUnit float64, quantity int, discountFlat, discountRate float64) float64 {
	return (pricePerUnit - discountFlat) * float64(quantity) * (1 - discountRate)
}

// ItemTotal is LineTotal for a round item.
func ItemTotal(item models.Item) decimal.Decimal {
	return LineTotal(item.PricePerUnit, item.Quantity, item.DiscountFlat, item.DiscountRate)
}

// RoundTotal sums the line totals of a round.
func RoundTotal(round models.Round) decimal.Decimal {
	total := decimal.Zero
	for _, item := range round.Items {
		total = total.Add(ItemTotal(item))
	}
	return total
}

// OrderLinesTotal sums every line of every round. It is not a substitute for
// the order's server-computed total, which also includes taxes.
func OrderLinesTotal(order models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, round := range order.Rounds {
		total = total.Add(RoundTotal(round))
	}
	return total
}

// OrderSummary is the bill breakdown shown for a paid order.
type OrderSummary struct {
	SubTotal  decimal.Decimal
	Discounts decimal.Decimal
	Taxes     decimal.Decimal
	Total     decimal.Decimal
}

// SummaryOf returns the server-authoritative totals of an order.
func SummaryOf(order models.Order) OrderSummary {
	return OrderSummary{
		SubTotal:  decimal.NewFromFloat(order.SubTotal),
		Discounts: decimal.NewFromFloat(order.Discounts),
		Taxes:     decimal.NewFromFloat(order.Taxes),
		Total:     decimal.NewFromFloat(order.Total),
	}
}

// FormatMoney renders an amount with two decimals, e.g. "24.30".
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatRate renders a discount fraction as a percentage without trailing
// zeros, e.g. 0.125 -> "12.5".
func FormatRate(rate float64) string {
	return decimal.NewFromFloat(rate).Mul(decimal.NewFromInt(100)).String()
}
