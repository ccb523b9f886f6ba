package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

func TestValidateRoundRequest(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.RoundItem
		badField string
	}{
		{"valid", []models.RoundItem{{BeerID: "b1", Quantity: 1, DiscountRate: 0.2}}, ""},
		{"no items", nil, "items"},
		{"missing beer", []models.RoundItem{{Quantity: 1}}, "items[0].beer_id"},
		{"zero quantity", []models.RoundItem{{BeerID: "b1"}}, "items[0].quantity"},
		{"negative flat", []models.RoundItem{{BeerID: "b1", Quantity: 1, DiscountFlat: -1}}, "items[0].discount_flat"},
		{"rate above one", []models.RoundItem{{BeerID: "b1", Quantity: 1, DiscountRate: 1.5}}, "items[0].discount_rate"},
		{"second row bad", []models.RoundItem{{BeerID: "b1", Quantity: 1}, {BeerID: "b2", Quantity: -2}}, "items[1].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoundRequest(&models.RoundRequest{Items: tt.items})
			if tt.badField == "" {
				assert.NoError(t, err)
				return
			}
			vErr, ok := errors.AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, vErr.Details, tt.badField)
		})
	}
}

func TestValidateNewBeer(t *testing.T) {
	valid := &models.NewBeer{Name: "  Corona ", Price: 4.5, Quantity: 0}
	require.NoError(t, ValidateNewBeer(valid))
	assert.Equal(t, "Corona", valid.Name)

	err := ValidateNewBeer(&models.NewBeer{Name: "", Price: 0, Quantity: -1})
	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "is required", vErr.Details["name"])
	assert.Equal(t, "must be greater than 0", vErr.Details["price"])
	assert.Equal(t, "must be at least 0", vErr.Details["quantity"])

	err = ValidateNewBeer(&models.NewBeer{Name: "A name far too long for it", Price: 1})
	vErr, ok = errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "must be at most 20 characters", vErr.Details["name"])
}

func TestValidateBeer_RequiresID(t *testing.T) {
	err := ValidateBeer(&models.Beer{Name: "Corona", Price: 1})

	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "id", vErr.Field)
}

func TestCoerceRoundItems(t *testing.T) {
	req, err := CoerceRoundItems([]RoundItemInput{
		{BeerID: "b1", Quantity: "3", DiscountFlat: "1.5", DiscountRate: "0.1"},
		{BeerID: "b2", Quantity: " 2 ", DiscountFlat: "", DiscountRate: ""},
	})

	require.NoError(t, err)
	require.Len(t, req.Items, 2)
	assert.Equal(t, models.RoundItem{BeerID: "b1", Quantity: 3, DiscountFlat: 1.5, DiscountRate: 0.1}, req.Items[0])
	assert.Equal(t, models.RoundItem{BeerID: "b2", Quantity: 2}, req.Items[1])
}

func TestCoerceRoundItems_ReportsTypeErrors(t *testing.T) {
	_, err := CoerceRoundItems([]RoundItemInput{
		{BeerID: "b1", Quantity: "three", DiscountFlat: "x", DiscountRate: "0"},
	})

	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Quantity must be a number", vErr.Details["items[0].quantity"])
	assert.Equal(t, "Discount flat must be a number", vErr.Details["items[0].discount_flat"])
	assert.Equal(t, "items[0].discount_flat", vErr.Field)
}

func TestCoerceRoundItems_Empty(t *testing.T) {
	_, err := CoerceRoundItems(nil)

	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "items", vErr.Field)
}

func TestCoerceNewBeer(t *testing.T) {
	beer, err := CoerceNewBeer(BeerInput{Name: "Kunstmann", Price: "3.75", Quantity: "12"})
	require.NoError(t, err)
	assert.Equal(t, models.NewBeer{Name: "Kunstmann", Price: 3.75, Quantity: 12}, *beer)

	_, err = CoerceNewBeer(BeerInput{Name: "Kunstmann", Price: "", Quantity: "lots"})
	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Price is required", vErr.Details["price"])
	assert.Equal(t, "Quantity must be a number", vErr.Details["quantity"])
}

func TestCoerceBeer(t *testing.T) {
	beer, err := CoerceBeer("b-9", BeerInput{Name: "Austral", Price: "5", Quantity: "0"})

	require.NoError(t, err)
	assert.Equal(t, models.Beer{ID: "b-9", Name: "Austral", Price: 5, Quantity: 0}, *beer)
}

func TestCoerceRoundItems_DecimalQuantities(t *testing.T) {
	tests := []struct {
		in       string
		expected int
		detail   string
	}{
		{"010", 10, ""},
		{"08", 8, ""},
		{" 3 ", 3, ""},
		{"2.0", 2, ""},
		{"0x10", 0, "Quantity must be a number"},
		{"1e2", 0, "Quantity must be a number"},
		{"2.5", 0, "Quantity must be a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req, err := CoerceRoundItems([]RoundItemInput{{BeerID: "b1", Quantity: tt.in}})
			if tt.detail == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, req.Items[0].Quantity)
				return
			}
			vErr, ok := errors.AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.detail, vErr.Details["items[0].quantity"])
		})
	}
}

func TestCoerceNewBeer_DecimalQuantities(t *testing.T) {
	beer, err := CoerceNewBeer(BeerInput{Name: "Kross", Price: "04.50", Quantity: "010"})
	require.NoError(t, err)
	assert.Equal(t, 10, beer.Quantity)
	assert.Equal(t, 4.5, beer.Price)

	_, err = CoerceNewBeer(BeerInput{Name: "Kross", Price: "4", Quantity: "0x10"})
	vErr, ok := errors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Quantity must be a number", vErr.Details["quantity"])
}

func TestCoerce_RejectsNonFiniteNumbers(t *testing.T) {
	for _, in := range []string{"Inf", "+Inf", "-inf", "NaN"} {
		_, err := CoerceNewBeer(BeerInput{Name: "Kross", Price: in, Quantity: "1"})
		vErr, ok := errors.AsValidationError(err)
		require.True(t, ok, in)
		assert.Equal(t, "Price must be a number", vErr.Details["price"], in)

		_, err = CoerceRoundItems([]RoundItemInput{{BeerID: "b1", Quantity: "1", DiscountFlat: in, DiscountRate: in}})
		vErr, ok = errors.AsValidationError(err)
		require.True(t, ok, in)
		assert.Equal(t, "Discount flat must be a number", vErr.Details["items[0].discount_flat"], in)
		assert.Equal(t, "Discount rate must be a number", vErr.Details["items[0].discount_rate"], in)
	}
}
