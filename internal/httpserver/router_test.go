package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscraper/pkg/logger"
)

func newTestRouter(cfg ...RouterConfig) chi.Router {
	r := chi.NewRouter()
	SetupRouter(r, cfg...)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(newTestRouter(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestReadyz(t *testing.T) {
	rr := serve(newTestRouter(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(newTestRouter(RouterConfig{ReadyFunc: func() error { return nil }}),
		httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(newTestRouter(RouterConfig{ReadyFunc: func() error { return errors.New("token expired") }}),
		httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_READY")
	assert.Contains(t, rr.Body.String(), "token expired")
}

func TestMetricsEndpoint(t *testing.T) {
	rr := serve(newTestRouter(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestPanicRecovery(t *testing.T) {
	tl := logger.NewTestLogger()
	r := newTestRouter(RouterConfig{Logger: tl})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("test panic") })

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL")
	assert.True(t, tl.HasMessage("handler panic"))
}

func TestCORS(t *testing.T) {
	r := newTestRouter()
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := serve(r, req)
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	restricted := newTestRouter(RouterConfig{AllowedOrigins: "https://threads.example"})
	restricted.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	rr = serve(restricted, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseCORSOrigins(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{"*"}},
		{" , ", []string{"*"}},
		{"https://a.example", []string{"https://a.example"}},
		{"https://a.example , https://b.example", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCORSOrigins(tt.raw), tt.raw)
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter()
	var captured string
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/id", nil))
	require.NotEmpty(t, captured)
	assert.Equal(t, captured, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = serve(r, req)
	assert.Equal(t, "abc-123", captured)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestAccessLog(t *testing.T) {
	tl := logger.NewTestLogger()
	r := newTestRouter(RouterConfig{Logger: tl})
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	serve(r, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	msgs := tl.GetMessages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, http.StatusTeapot, last.Fields["status_code"])
	assert.NotEmpty(t, last.Fields["request_id"])
}
