package service

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRoundRequest checks a round against the canonical item contract.
func ValidateRoundRequest(req *models.RoundRequest) error {
	if len(req.Items) == 0 {
		return errors.NewValidationError("items", "at least one item is required")
	}
	return toValidationError(validate.Struct(req))
}

// ValidateNewBeer checks a stock creation request.
func ValidateNewBeer(beer *models.NewBeer) error {
	beer.Name = strings.TrimSpace(beer.Name)
	return toValidationError(validate.Struct(beer))
}

// ValidateBeer checks a stock update request.
func ValidateBeer(beer *models.Beer) error {
	if beer.ID == "" {
		return errors.NewValidationError("id", "beer ID is required")
	}
	beer.Name = strings.TrimSpace(beer.Name)
	return toValidationError(validate.Struct(beer))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &errors.ValidationError{
		Message: "invalid input",
		Details: make(map[string]string, len(fieldErrs)),
	}
	for _, fe := range fieldErrs {
		key := fieldKey(fe.Namespace())
		if out.Field == "" {
			out.Field = key
		}
		out.Details[key] = describe(fe)
	}
	return out
}

// fieldKey strips the struct name: "RoundRequest.items[0].quantity" -> "items[0].quantity".
func fieldKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must have at least " + fe.Param() + " entries"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must have at most " + fe.Param() + " entries"
	}
	return "is invalid"
}

// RoundItemInput is one item row as typed into the round form.
type RoundItemInput struct {
	BeerID       string
	Quantity     string
	DiscountFlat string
	DiscountRate string
}

// BeerInput is the stock form as typed.
type BeerInput struct {
	Name     string
	Price    string
	Quantity string
}

// CoerceRoundItems converts raw form rows into a round request. Empty
// discounts mean zero. Conversion problems are reported per field, then the
// result is checked against the item contract.
func CoerceRoundItems(rows []RoundItemInput) (*models.RoundRequest, error) {
	req := &models.RoundRequest{Items: make([]models.RoundItem, 0, len(rows))}
	details := map[string]string{}

	for i, row := range rows {
		prefix := fmt.Sprintf("items[%d].", i)
		item := models.RoundItem{BeerID: strings.TrimSpace(row.BeerID)}

		if q := strings.TrimSpace(row.Quantity); q == "" {
			details[prefix+"quantity"] = "Quantity is required"
		} else if n, err := parseInt(q); err != nil {
			details[prefix+"quantity"] = "Quantity " + err.Error()
		} else {
			item.Quantity = n
		}

		if f, err := coerceFloat(row.DiscountFlat); err != nil {
			details[prefix+"discount_flat"] = "Discount flat must be a number"
		} else {
			item.DiscountFlat = f
		}

		if r, err := coerceFloat(row.DiscountRate); err != nil {
			details[prefix+"discount_rate"] = "Discount rate must be a number"
		} else {
			item.DiscountRate = r
		}

		req.Items = append(req.Items, item)
	}

	if len(details) > 0 {
		return req, firstOf(details)
	}
	return req, ValidateRoundRequest(req)
}

// CoerceNewBeer converts the stock form into a creation request.
func CoerceNewBeer(in BeerInput) (*models.NewBeer, error) {
	beer := &models.NewBeer{Name: in.Name}
	details := map[string]string{}

	if p := strings.TrimSpace(in.Price); p == "" {
		details["price"] = "Price is required"
	} else if f, err := parseNumber(p); err != nil {
		details["price"] = "Price must be a number"
	} else {
		beer.Price = f
	}

	if q := strings.TrimSpace(in.Quantity); q == "" {
		details["quantity"] = "Quantity is required"
	} else if n, err := parseInt(q); err != nil {
		details["quantity"] = "Quantity " + err.Error()
	} else {
		beer.Quantity = n
	}

	if len(details) > 0 {
		return beer, firstOf(details)
	}
	return beer, ValidateNewBeer(beer)
}

// CoerceBeer converts the edit form into an update request for id.
func CoerceBeer(id string, in BeerInput) (*models.Beer, error) {
	nb, err := CoerceNewBeer(in)
	beer := nb.WithID(id)
	if err != nil {
		return &beer, err
	}
	return &beer, ValidateBeer(&beer)
}

func coerceFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return parseNumber(s)
}

var (
	errNotANumber   = stderrors.New("must be a number")
	errNotAnInteger = stderrors.New("must be a whole number")
)

// parseNumber reads a plain base-10 number. Leading zeros are decimal;
// prefixed bases, exponents and non-finite values are rejected.
func parseNumber(s string) (float64, error) {
	if validate.Var(s, "numeric") != nil {
		return 0, errNotANumber
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errNotANumber
	}
	return f, nil
}

func parseInt(s string) (int, error) {
	f, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errNotAnInteger
	}
	return int(f), nil
}

func firstOf(details map[string]string) *errors.ValidationError {
	out := &errors.ValidationError{Message: "invalid input", Details: details}
	for k := range details {
		if out.Field == "" || k < out.Field {
			out.Field = k
		}
	}
	return out
}
