package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	webcontext "github.com/conduit-lang/boardstore/internal/web/context"
	"go.uber.org/zap"
)

func tag(name string, called *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = append(*called, name+"-before")
			next.ServeHTTP(w, r)
			*called = append(*called, name+"-after")
		})
	}
}

func TestChainOrder(t *testing.T) {
	var called []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = append(called, "handler")
	})

	chain := NewChain(tag("m1", &called)).Use(tag("m2", &called))
	chain.Then(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if len(called) != len(expected) {
		t.Fatalf("Expected %d calls, got %d: %v", len(expected), len(called), called)
	}
	for i := range expected {
		if called[i] != expected[i] {
			t.Errorf("Call %d: expected %s, got %s", i, expected[i], called[i])
		}
	}
}

func TestEmptyChain(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	NewChain().Then(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("Handler was not called")
	}
}

func TestStandardChain(t *testing.T) {
	var domain, requestID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain = webcontext.GetDomain(r.Context())
		requestID = webcontext.GetRequestID(r.Context())
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Domain", "tenant1")
	rec := httptest.NewRecorder()
	Standard(zap.NewNop().Sugar(), DefaultIdentityConfig()).Then(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if domain != "tenant1" {
		t.Errorf("Expected domain tenant1, got %q", domain)
	}
	if requestID == "" || rec.Header().Get(RequestIDHeader) != requestID {
		t.Errorf("Expected request id %q in response header, got %q", requestID, rec.Header().Get(RequestIDHeader))
	}
}
