package handlers

import (
	"embed"
	"html/template"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/service"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/ui"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	clockLayout = "3:04 PM"
	ellipsis    = "…"
)

var funcMap = template.FuncMap{
	"money":      formatMoney,
	"amount":     formatAmount,
	"rate":       formatRate,
	"truncate":   truncate,
	"clock":      func(t models.Timestamp) string { return t.Format(clockLayout) },
	"lineTotal":  func(item models.Item) string { return formatAmount(service.ItemTotal(item)) },
	"roundTotal": service.RoundTotal,
	"inc":        func(i int) int { return i + 1 },
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}

func formatMoney(v float64) string {
	return formatAmount(decimal.NewFromFloat(v))
}

func formatAmount(d decimal.Decimal) string {
	return "$" + service.FormatMoney(d)
}

func formatRate(rate float64) string {
	return service.FormatRate(rate) + "%"
}

// truncate shortens s to n runes, the last of which is an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + ellipsis
}

// Flash is a transient notification shown once.
type Flash struct {
	Kind   string
	Title  string
	Detail string
}

const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// Page is the part of every view model the layout needs.
type Page struct {
	Title   string
	State   ui.State
	Flashes []Flash
}

// Interactive reports whether submit controls are enabled.
func (p Page) Interactive() bool {
	return p.State == ui.Ready
}

type ordersView struct {
	Page
	Orders []models.Order
}

type orderView struct {
	Page
	Order   *models.Order
	Summary service.OrderSummary
}

type roundRow struct {
	Index  int
	Input  service.RoundItemInput
	Errors map[string]string
}

type roundFormView struct {
	Page
	OrderID string
	Beers   []models.Beer
	Rows    []roundRow
}

type stockView struct {
	Page
	Beers []models.Beer
}

type beerFormView struct {
	Page
	ID     string
	Input  service.BeerInput
	Errors map[string]string
}

type errorView struct {
	Page
	Status int
	Detail string
	Retry  string
}
