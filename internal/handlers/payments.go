package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/ui"
)

// PayOrder handles POST /orders/:id/pay
//
// Repeated submissions are safe: a second click while the first is in flight,
// or after the order is settled, lands back on the order page with a notice
// and never reaches the API's pay endpoint.
func (h *Handlers) PayOrder(c *gin.Context) {
	orderID := c.Param("id")
	location := "/orders/" + orderID
	m := ui.Resume(ui.Ready)
	h.advance(c, m, ui.Mutating)

	err := h.paymentService.PayOrder(c.Request.Context(), orderID)
	switch {
	case err == nil:
		h.finish(c, m, Flash{Kind: flashSuccess, Title: "Order Paid"}, location)
	case errors.Is(err, errors.ErrAlreadyPaid):
		h.finish(c, m, Flash{Kind: flashInfo, Title: "Order is already paid"}, location)
	case errors.Is(err, errors.ErrPaymentInFlight):
		h.finish(c, m, Flash{Kind: flashInfo, Title: "Payment already in progress"}, location)
	default:
		if detail, ok := apiDetail(err); ok {
			h.finish(c, m, Flash{Kind: flashError, Title: "Oh no!", Detail: detail}, location)
			return
		}
		h.fail(c, m, err, location)
	}
}
