package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(t *testing.T, check func(string)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/healthz", func(c *gin.Context) {
		check(FromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewarePropagatesIncomingHeader(t *testing.T) {
	const incoming = "req-incoming-123"
	r := newRouter(t, func(got string) {
		if got != incoming {
			t.Fatalf("unexpected request id in context: got %q want %q", got, incoming)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(Header, incoming)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get(Header); got != incoming {
		t.Fatalf("unexpected response request id: got %q want %q", got, incoming)
	}
}

func TestMiddlewareGeneratesWhenMissing(t *testing.T) {
	r := newRouter(t, func(got string) {
		if got == "" {
			t.Fatal("expected generated request id in context")
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get(Header); got == "" {
		t.Fatal("expected generated request id header")
	}
}
