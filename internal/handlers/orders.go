package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/service"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/ui"
)

// maxRoundRows bounds the number of item rows a round form can grow to.
const maxRoundRows = 20

// ListOrders handles GET /orders
func (h *Handlers) ListOrders(c *gin.Context) {
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)

	orders, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		h.fail(c, m, err, "/orders")
		return
	}

	h.advance(c, m, ui.Ready)
	c.HTML(http.StatusOK, "orders.html", ordersView{
		Page:   h.page(c, "Orders", m),
		Orders: orders,
	})
}

// CreateOrder handles POST /orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	m := ui.Resume(ui.Ready)
	h.advance(c, m, ui.Mutating)

	order, err := h.orderService.CreateOrder(c.Request.Context())
	if err != nil {
		h.fail(c, m, err, "/orders")
		return
	}

	h.finish(c, m, Flash{Kind: flashSuccess, Title: "Created new Order"}, "/orders/"+order.ID)
}

// GetOrder handles GET /orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	id := c.Param("id")
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, m, err, "/orders/"+id)
		return
	}

	h.advance(c, m, ui.Ready)
	c.HTML(http.StatusOK, "order.html", orderView{
		Page:    h.page(c, "Order "+order.ID, m),
		Order:   order,
		Summary: service.SummaryOf(*order),
	})
}

// RoundForm handles GET /orders/:id/rounds. ?items=N starts the form with N
// item rows.
func (h *Handlers) RoundForm(c *gin.Context) {
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)

	n := clampRows(cast.ToInt(c.Query("items")))
	rows := make([]roundRow, n)
	for i := range rows {
		rows[i] = blankRow(i)
	}

	h.renderRoundForm(c, m, http.StatusOK, c.Param("id"), rows)
}

// AddRound handles POST /orders/:id/rounds. The "add" and "remove" buttons
// edit the row list and re-render; any other submit creates the round.
func (h *Handlers) AddRound(c *gin.Context) {
	orderID := c.Param("id")
	m := ui.Resume(ui.Ready)
	rows := parseRoundRows(c)

	if c.PostForm("add") != "" || c.PostForm("remove") != "" {
		h.advance(c, m, ui.Loading)
		h.renderRoundForm(c, m, http.StatusOK, orderID, editRows(rows, c.PostForm("add") != "", c.PostForm("remove")))
		return
	}

	h.advance(c, m, ui.Mutating)

	inputs := make([]service.RoundItemInput, len(rows))
	for i, row := range rows {
		inputs[i] = row.Input
	}

	req, err := service.CoerceRoundItems(inputs)
	if err == nil {
		err = h.orderService.AddRound(c.Request.Context(), orderID, req)
	}
	if err == nil {
		h.finish(c, m, Flash{Kind: flashSuccess, Title: "Added Round to Order"}, "/orders/"+orderID)
		return
	}

	if vErr, ok := errors.AsValidationError(err); ok {
		var extra []Flash
		if stray := applyRowErrors(rows, vErr.Details); len(stray) > 0 {
			extra = append(extra, Flash{Kind: flashError, Title: "Oh no!", Detail: strings.Join(stray, "; ")})
		}
		h.renderRoundForm(c, m, http.StatusUnprocessableEntity, orderID, rows, extra...)
		return
	}
	if detail, ok := apiDetail(err); ok {
		apiErr, _ := errors.AsAPIError(err)
		h.renderRoundForm(c, m, apiErr.Status, orderID, rows, Flash{Kind: flashError, Title: "Oh no!", Detail: detail})
		return
	}

	h.fail(c, m, err, "/orders/"+orderID+"/rounds")
}

// renderRoundForm fetches the stock list for the beer picker and renders the
// form. m must be Loading or Mutating.
func (h *Handlers) renderRoundForm(c *gin.Context, m *ui.Machine, status int, orderID string, rows []roundRow, extra ...Flash) {
	beers, err := h.stockService.ListStock(c.Request.Context())
	if err != nil {
		h.fail(c, m, err, "/orders/"+orderID+"/rounds")
		return
	}

	h.advance(c, m, ui.Ready)
	c.HTML(status, "rounds.html", roundFormView{
		Page:    h.page(c, "New round", m, extra...),
		OrderID: orderID,
		Beers:   beers,
		Rows:    rows,
	})
}

func clampRows(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxRoundRows {
		return maxRoundRows
	}
	return n
}

func blankRow(i int) roundRow {
	return roundRow{
		Index: i,
		Input: service.RoundItemInput{Quantity: "1", DiscountFlat: "0", DiscountRate: "0"},
	}
}

// parseRoundRows reads the posted item rows as typed.
func parseRoundRows(c *gin.Context) []roundRow {
	n := clampRows(cast.ToInt(c.PostForm("rows")))
	rows := make([]roundRow, n)
	for i := range rows {
		field := func(name string) string {
			return c.PostForm(fmt.Sprintf("items[%d].%s", i, name))
		}
		rows[i] = roundRow{
			Index: i,
			Input: service.RoundItemInput{
				BeerID:       field("beer_id"),
				Quantity:     field("quantity"),
				DiscountFlat: field("discount_flat"),
				DiscountRate: field("discount_rate"),
			},
		}
	}
	return rows
}

// editRows appends a blank row or removes the row at index remove, keeping at
// least one row.
func editRows(rows []roundRow, add bool, remove string) []roundRow {
	if add && len(rows) < maxRoundRows {
		rows = append(rows, blankRow(len(rows)))
	}
	if remove != "" && len(rows) > 1 {
		if i, err := strconv.Atoi(remove); err == nil && i >= 0 && i < len(rows) {
			rows = append(rows[:i], rows[i+1:]...)
		}
	}
	for i := range rows {
		rows[i].Index = i
	}
	return rows
}

// applyRowErrors attaches "items[i].field" messages to their rows and returns
// the messages that belong to no row.
func applyRowErrors(rows []roundRow, details map[string]string) []string {
	var stray []string
	for key, msg := range details {
		i, field, ok := splitItemKey(key)
		if !ok || i >= len(rows) {
			stray = append(stray, key+": "+msg)
			continue
		}
		if rows[i].Errors == nil {
			rows[i].Errors = make(map[string]string)
		}
		rows[i].Errors[field] = msg
	}
	return stray
}

// splitItemKey parses "items[2].quantity" into 2 and "quantity".
func splitItemKey(key string) (int, string, bool) {
	rest, ok := strings.CutPrefix(key, "items[")
	if !ok {
		return 0, "", false
	}
	idx, field, ok := strings.Cut(rest, "].")
	if !ok {
		return 0, "", false
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, field, true
}
