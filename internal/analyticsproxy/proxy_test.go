package analyticsproxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newProxyRouter(t *testing.T, upstream http.HandlerFunc) chi.Router {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewClient(srv.URL, 5*time.Second))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestForwardPreservesBodyAndStatus(t *testing.T) {
	router := newProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eoq/calculate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"demand": 1000}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"eoq": 316}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/analytics/eoq/calculate", strings.NewReader(`{"demand": 1000}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"eoq": 316}`, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestForwardPassesQueryAndUpstreamErrors(t *testing.T) {
	router := newProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "branch_id=3", r.URL.RawQuery)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "not enough sales data"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/analytics/abc-analysis?branch_id=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "not enough sales data")
}

func TestForwardMultipartPassthrough(t *testing.T) {
	router := newProxyRouter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		require.Equal(t, "sales.csv", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Contains(t, string(content), "LED Bulb")
		w.WriteHeader(http.StatusOK)
	})

	body := &strings.Builder{}
	boundary := "testboundary"
	body.WriteString("--" + boundary + "\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"sales.csv\"\r\n")
	body.WriteString("Content-Type: text/csv\r\n\r\n")
	body.WriteString("product,qty\nLED Bulb,12\n")
	body.WriteString("\r\n--" + boundary + "--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/analytics/sales-data/import", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestForwardUnreachableUpstream(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewClient("http://127.0.0.1:1", time.Second))
	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/analytics/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}
