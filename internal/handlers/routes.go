package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the UI pages and probes on r.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)
	r.GET("/version", h.Version)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/orders")
	})

	orders := r.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/rounds", h.RoundForm)
		orders.POST("/:id/rounds", h.AddRound)
		orders.POST("/:id/pay", h.PayOrder)
	}

	stock := r.Group("/stock")
	{
		stock.GET("", h.ListStock)
		stock.POST("", h.CreateBeer)
		stock.GET("/new", h.NewBeerForm)
		stock.GET("/:id", h.EditBeer)
		stock.POST("/:id", h.UpdateBeer)
		stock.POST("/:id/delete", h.DeleteBeer)
	}
}
