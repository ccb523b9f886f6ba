package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/clients"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/errors"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}

	if resp["service"] != "taproom-admin" {
		t.Errorf("Expected service 'taproom-admin', got %v", resp["service"])
	}
}

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	api := clients.NewMockTaproomClient()
	h := newTestHandlers(api)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestReady_UpstreamDown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	api := clients.NewMockTaproomClient()
	api.Err = stderrors.New("connection refused")
	h := newTestHandlers(api)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestLive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", errors.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Wrap(errors.ErrNotFound, "get order"), http.StatusNotFound},
		{"validation", errors.NewValidationError("name", "is required"), http.StatusBadRequest},
		{"api client error", &errors.APIError{Status: http.StatusConflict, Detail: "Order is already paid"}, http.StatusConflict},
		{"api server error", &errors.APIError{Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{"transport", stderrors.New("dial tcp: connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, engine := gin.CreateTestContext(w)
			engine.SetHTMLTemplate(Templates())

			handleError(c, tt.err, "/orders/o1")

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
			if !strings.Contains(w.Body.String(), `data-state="error"`) {
				t.Errorf("Expected error page state, got %s", w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `href="/orders/o1"`) {
				t.Errorf("Expected retry link")
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"short", "short"},
		{"123456789", "123456789"},
		{"1234567890", "12345678…"},
		{"3fa85f64-5717-4562-b3fc-2c963f66afa6", "3fa85f64…"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, 9); got != tt.expected {
			t.Errorf("truncate(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestEditRows(t *testing.T) {
	rows := []roundRow{blankRow(0), blankRow(1)}
	rows[1].Input.BeerID = "b2"

	removed := editRows(rows, false, "0")
	if len(removed) != 1 || removed[0].Input.BeerID != "b2" || removed[0].Index != 0 {
		t.Errorf("unexpected rows after remove: %+v", removed)
	}

	last := editRows([]roundRow{blankRow(0)}, false, "0")
	if len(last) != 1 {
		t.Errorf("the last row must not be removable")
	}

	added := editRows([]roundRow{blankRow(0)}, true, "")
	if len(added) != 2 || added[1].Index != 1 {
		t.Errorf("unexpected rows after add: %+v", added)
	}
}

func TestSplitItemKey(t *testing.T) {
	i, field, ok := splitItemKey("items[12].discount_rate")
	if !ok || i != 12 || field != "discount_rate" {
		t.Errorf("got %d %q %v", i, field, ok)
	}
	if _, _, ok := splitItemKey("items"); ok {
		t.Errorf("expected no match for a bare key")
	}
}
