package models

// DeletedBeerLabel is rendered in place of a beer name when the round item
// no longer carries its beer snapshot.
const DeletedBeerLabel = "[Deleted]"

// Order is a customer's running tab. The money fields are computed by the
// taproom API and displayed as sent.
type Order struct {
	ID        string    `json:"id"`
	Created   Timestamp `json:"created"`
	Paid      bool      `json:"paid"`
	SubTotal  float64   `json:"sub_total"`
	Taxes     float64   `json:"taxes"`
	Discounts float64   `json:"discounts"`
	Total     float64   `json:"total"`
	Rounds    []Round   `json:"rounds"`
}

// CanAddRound reports whether new rounds may be appended.
func (o *Order) CanAddRound() bool {
	return !o.Paid
}

// CanPay reports whether the pay action is available. Orders move to paid
// exactly once.
func (o *Order) CanPay() bool {
	return !o.Paid
}

// Round is one batch of items added to an order at one time.
type Round struct {
	ID      string    `json:"id"`
	Created Timestamp `json:"created"`
	Items   []Item    `json:"items"`
}

// Item is one line of a round. Beer is a denormalized snapshot and is nil
// when the beer was removed from stock.
type Item struct {
	BeerID       string  `json:"beer_id"`
	Beer         *Beer   `json:"beer,omitempty"`
	PricePerUnit float64 `json:"price_per_unit"`
	Quantity     int     `json:"quantity"`
	DiscountFlat float64 `json:"discount_flat"`
	DiscountRate float64 `json:"discount_rate"`
}

// BeerName returns the snapshot name or DeletedBeerLabel.
func (i *Item) BeerName() string {
	if i.Beer == nil || i.Beer.Name == "" {
		return DeletedBeerLabel
	}
	return i.Beer.Name
}

// OrderList is the body of GET /orders/.
type OrderList struct {
	Orders []Order `json:"orders"`
}

// RoundItem is one requested line of a new round. The validate tags are the
// canonical input contract for round items.
type RoundItem struct {
	BeerID       string  `json:"beer_id" validate:"required"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	DiscountFlat float64 `json:"discount_flat" validate:"gte=0"`
	DiscountRate float64 `json:"discount_rate" validate:"gte=0,lte=1"`
}

// RoundRequest is the body of POST /orders/{id}/rounds.
type RoundRequest struct {
	Items []RoundItem `json:"items" validate:"min=1,dive"`
}

// PayRequest is the body of POST /orders/{id}/pay.
type PayRequest struct {
	OrderID string `json:"order_id"`
}

// ErrorDetail is the error body the taproom API sends with non-2xx answers.
type ErrorDetail struct {
	Detail string `json:"detail"`
}
