package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/metrics"
)

func newTestRouter(m *metrics.Metrics, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(logging.NewLoggerV2("test")), Instrument(m))
	r.GET("/orders/:id", func(c *gin.Context) {
		*seen = RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	r := newTestRouter(metrics.New(), &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/o1", nil))

	if seen == "" {
		t.Fatal("Expected a generated request ID in the request context")
	}
	if w.Header().Get(HeaderRequestID) != seen {
		t.Errorf("Expected response header %s, got %s", seen, w.Header().Get(HeaderRequestID))
	}
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	r := newTestRouter(metrics.New(), &seen)

	req := httptest.NewRequest(http.MethodGet, "/orders/o1", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "req-123" {
		t.Errorf("Expected inbound request ID, got %s", seen)
	}
}

func TestInstrument_UsesRouteTemplate(t *testing.T) {
	var seen string
	m := metrics.New()
	r := newTestRouter(m, &seen)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/o1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/o2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/orders/:id", "200")); got != 2 {
		t.Errorf("Expected 2 requests for /orders/:id, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("Expected 1 unmatched request, got %v", got)
	}
}
