package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/service"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/ui"
)

// ListStock handles GET /stock
func (h *Handlers) ListStock(c *gin.Context) {
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)

	beers, err := h.stockService.ListStock(c.Request.Context())
	if err != nil {
		h.fail(c, m, err, "/stock")
		return
	}

	h.advance(c, m, ui.Ready)
	c.HTML(http.StatusOK, "stock.html", stockView{
		Page:  h.page(c, "Stock", m),
		Beers: beers,
	})
}

// NewBeerForm handles GET /stock/new
func (h *Handlers) NewBeerForm(c *gin.Context) {
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)
	h.advance(c, m, ui.Ready)

	c.HTML(http.StatusOK, "beer_form.html", beerFormView{
		Page: h.page(c, "New beer", m),
	})
}

// CreateBeer handles POST /stock
func (h *Handlers) CreateBeer(c *gin.Context) {
	m := ui.Resume(ui.Ready)
	h.advance(c, m, ui.Mutating)
	input := beerInput(c)

	beer, err := service.CoerceNewBeer(input)
	if err == nil {
		_, err = h.stockService.CreateBeer(c.Request.Context(), beer)
	}
	if err == nil {
		h.finish(c, m, Flash{Kind: flashSuccess, Title: "Added new Beer to Stock"}, "/stock")
		return
	}

	h.rejectBeerForm(c, m, "", input, err)
}

// EditBeer handles GET /stock/:id
func (h *Handlers) EditBeer(c *gin.Context) {
	id := c.Param("id")
	m := &ui.Machine{}
	h.advance(c, m, ui.Loading)

	beer, err := h.stockService.GetBeer(c.Request.Context(), id)
	if err != nil {
		h.fail(c, m, err, "/stock")
		return
	}

	h.advance(c, m, ui.Ready)
	c.HTML(http.StatusOK, "beer_form.html", beerFormView{
		Page: h.page(c, "Beer "+beer.Name, m),
		ID:   beer.ID,
		Input: service.BeerInput{
			Name:     beer.Name,
			Price:    cast.ToString(beer.Price),
			Quantity: cast.ToString(beer.Quantity),
		},
	})
}

// UpdateBeer handles POST /stock/:id. The API receives it as PUT /stock/{id}.
func (h *Handlers) UpdateBeer(c *gin.Context) {
	id := c.Param("id")
	m := ui.Resume(ui.Ready)
	h.advance(c, m, ui.Mutating)
	input := beerInput(c)

	beer, err := service.CoerceBeer(id, input)
	if err == nil {
		_, err = h.stockService.UpdateBeer(c.Request.Context(), beer)
	}
	if err == nil {
		h.finish(c, m, Flash{Kind: flashSuccess, Title: "Updated Beer"}, "/stock/"+id)
		return
	}

	h.rejectBeerForm(c, m, id, input, err)
}

// DeleteBeer handles POST /stock/:id/delete
func (h *Handlers) DeleteBeer(c *gin.Context) {
	id := c.Param("id")
	m := ui.Resume(ui.Ready)
	h.advance(c, m, ui.Mutating)

	err := h.stockService.DeleteBeer(c.Request.Context(), id)
	if err == nil {
		h.finish(c, m, Flash{Kind: flashSuccess, Title: "Deleted Beer"}, "/stock")
		return
	}
	if detail, ok := apiDetail(err); ok {
		h.finish(c, m, Flash{Kind: flashError, Title: "Oh no!", Detail: detail}, "/stock/"+id)
		return
	}
	h.fail(c, m, err, "/stock")
}

// rejectBeerForm re-renders the stock form after a validation or API
// rejection, or fails the page for anything else.
func (h *Handlers) rejectBeerForm(c *gin.Context, m *ui.Machine, id string, input service.BeerInput, err error) {
	view := beerFormView{ID: id, Input: input}
	status := http.StatusUnprocessableEntity
	var extra []Flash

	if vErr, ok := errors.AsValidationError(err); ok {
		view.Errors = vErr.Details
	} else if detail, ok := apiDetail(err); ok {
		apiErr, _ := errors.AsAPIError(err)
		status = apiErr.Status
		extra = append(extra, Flash{Kind: flashError, Title: "Oh no!", Detail: detail})
	} else {
		retry := "/stock/new"
		if id != "" {
			retry = "/stock/" + id
		}
		h.fail(c, m, err, retry)
		return
	}

	title := "New beer"
	if id != "" {
		title = "Beer " + id
	}
	h.advance(c, m, ui.Ready)
	view.Page = h.page(c, title, m, extra...)
	c.HTML(status, "beer_form.html", view)
}

func beerInput(c *gin.Context) service.BeerInput {
	return service.BeerInput{
		Name:     c.PostForm("name"),
		Price:    c.PostForm("price"),
		Quantity: c.PostForm("quantity"),
	}
}
