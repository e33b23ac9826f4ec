package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/powchain/internal/api/handler"
	"go.uber.org/zap"
)

func TestRequestLogger_assignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if _, err := uuid.Parse(w.Header().Get(handler.RequestIDHeader)); err != nil {
		t.Errorf("expected generated UUID, got %q", w.Header().Get(handler.RequestIDHeader))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(handler.RequestIDHeader, id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(handler.RequestIDHeader); got != id {
		t.Errorf("expected echoed request ID %q, got %q", id, got)
	}
}

func TestRateLimiter_429(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimiter(ctx, handler.RateLimits{ReadRPS: 1, ReadBurst: 1}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After: got %q, want 1", got)
	}
}

func TestRateLimiter_submitBucket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimiter(ctx, handler.RateLimits{ReadRPS: 1, ReadBurst: 1, SubmitPerMinute: 2, SubmitBurst: 1}))
	r.POST("/transaction", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/chain", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	if w := serve(http.MethodPost, "/transaction"); w.Code != http.StatusOK {
		t.Fatalf("first submit: expected 200, got %d", w.Code)
	}
	w := serve(http.MethodPost, "/transaction")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second submit: expected 429, got %d", w.Code)
	}
	// Two per minute refills one token every 30s.
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || secs < 29 || secs > 30 {
		t.Errorf("Retry-After: got %q, want about 30", w.Header().Get("Retry-After"))
	}

	if w := serve(http.MethodGet, "/chain"); w.Code != http.StatusOK {
		t.Errorf("read after exhausted submit bucket: expected 200, got %d", w.Code)
	}
	for i := 0; i < 5; i++ {
		if w := serve(http.MethodGet, "/healthz"); w.Code != http.StatusOK {
			t.Fatalf("healthz #%d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRequestLogger_requestIDBounds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name string
		id   string
		echo bool
	}{
		{"opaque", "trace-7f3a.checkout/42", true},
		{"max length", strings.Repeat("x", 128), true},
		{"too long", strings.Repeat("x", 129), false},
		{"contains space", "a b", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.id != "" {
				req.Header.Set(handler.RequestIDHeader, tc.id)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			got := w.Header().Get(handler.RequestIDHeader)
			if tc.echo {
				if got != tc.id {
					t.Errorf("expected %q echoed, got %q", tc.id, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("expected generated UUID, got %q", got)
			}
		})
	}
}
