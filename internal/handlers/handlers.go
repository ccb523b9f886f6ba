package handlers

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/service"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/ui"
)

func init() {
	gob.Register(Flash{})
}

// Handlers holds all HTTP handlers for the taproom UI.
type Handlers struct {
	orderService   *service.OrderService
	paymentService *service.PaymentService
	stockService   *service.StockService
	client         clients.TaproomClient
	sessions       sessions.Store
	config         *config.Config
	logger         *logging.LoggerV2
}

// NewHandlers creates a new handlers instance. client is used directly only
// by the readiness probe.
func NewHandlers(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	stockService *service.StockService,
	client clients.TaproomClient,
	cfg *config.Config,
) *Handlers {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Handlers{
		orderService:   orderService,
		paymentService: paymentService,
		stockService:   stockService,
		client:         client,
		sessions:       store,
		config:         cfg,
		logger:         logging.NewLoggerV2("handlers"),
	}
}

func (h *Handlers) log(c *gin.Context) *logging.LoggerV2 {
	return h.logger.With(logging.Fields{
		"request_id": middleware.RequestIDFrom(c.Request.Context()),
		"path":       c.Request.URL.Path,
	})
}

// addFlash queues a notification for the next rendered page.
func (h *Handlers) addFlash(c *gin.Context, f Flash) {
	session, err := h.sessions.Get(c.Request, h.config.Session.Name)
	if err != nil {
		// A stale or tampered cookie yields a fresh session alongside the error.
		h.log(c).Warn("Discarding unreadable session", logging.Fields{"error": err.Error()})
	}
	session.AddFlash(f)
	if err := session.Save(c.Request, c.Writer); err != nil {
		h.log(c).Error("Failed to save session", logging.Fields{"error": err.Error()})
	}
}

// takeFlashes returns and clears the queued notifications.
func (h *Handlers) takeFlashes(c *gin.Context) []Flash {
	session, err := h.sessions.Get(c.Request, h.config.Session.Name)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(c.Request, c.Writer); err != nil {
		h.log(c).Error("Failed to save session", logging.Fields{"error": err.Error()})
	}

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// page builds the layout model for the machine's current state.
func (h *Handlers) page(c *gin.Context, title string, m *ui.Machine, extra ...Flash) Page {
	return Page{
		Title:   title,
		State:   m.State(),
		Flashes: append(h.takeFlashes(c), extra...),
	}
}

// advance moves m to next. An illegal transition is a programming error; it
// is logged and the page carries on in its current state.
func (h *Handlers) advance(c *gin.Context, m *ui.Machine, next ui.State) {
	if err := m.To(next); err != nil {
		h.log(c).Error("Page state", logging.Fields{"error": err.Error()})
	}
}

// settle waits the configured delay after a successful mutation.
func (h *Handlers) settle(c *gin.Context) {
	d := h.config.UI.MutationSettleDelay
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.Request.Context().Done():
	}
}

// finish ends a mutation with a redirect and a flash for the next page.
// Successful mutations wait out the settle delay first.
func (h *Handlers) finish(c *gin.Context, m *ui.Machine, flash Flash, location string) {
	h.advance(c, m, ui.Idle)
	h.addFlash(c, flash)
	if flash.Kind == flashSuccess {
		h.settle(c)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// fail moves the page to Error and renders the error page.
func (h *Handlers) fail(c *gin.Context, m *ui.Machine, err error, retry string) {
	h.advance(c, m, ui.Error)
	h.log(c).Error("Request failed", logging.Fields{"error": err.Error()})
	handleError(c, err, retry)
}

// handleError renders err as an error page. The taproom API's own client
// errors keep their status; server and transport failures become 502.
func handleError(c *gin.Context, err error, retry string) {
	status := http.StatusBadGateway
	detail := "The taproom service is unavailable. Please try again."

	if apiErr, ok := errors.AsAPIError(err); ok {
		detail = apiErr.Message()
		if apiErr.Status < 500 {
			status = apiErr.Status
		}
	}
	if errors.Is(err, errors.ErrNotFound) {
		status = http.StatusNotFound
		detail = "We couldn't find what you were looking for."
	}
	if vErr, ok := errors.AsValidationError(err); ok {
		status = http.StatusBadRequest
		detail = vErr.Error()
	}

	if retry == "" {
		retry = "/orders"
	}

	c.HTML(status, "error.html", errorView{
		Page:   Page{Title: "Error", State: ui.Error},
		Status: status,
		Detail: detail,
		Retry:  retry,
	})
}

// apiDetail extracts a user-facing message from an API client error, for
// errors that should re-render the form instead of failing the page.
func apiDetail(err error) (string, bool) {
	apiErr, ok := errors.AsAPIError(err)
	if !ok || apiErr.Status >= 500 || apiErr.Status == http.StatusNotFound {
		return "", false
	}
	return apiErr.Message(), true
}
