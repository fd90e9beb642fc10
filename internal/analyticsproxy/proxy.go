// Package analyticsproxy forwards analytics requests to the external
// analytics service. The service owns the statistics; this layer only
// relays requests and responses.
package analyticsproxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-ims/lumina/internal/platform/httpx"
)

// Client wraps calls to the analytics service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. timeout bounds each forwarded call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping checks if the analytics service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("analytics service returned status %d", resp.StatusCode)
	}
	return nil
}

// Forward relays the incoming request to the analytics service, preserving
// method, body and content type. Multipart uploads pass through untouched.
func (c *Client) Forward(w http.ResponseWriter, r *http.Request, path string) error {
	url := c.baseURL + path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		return err
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	// Copy failures past this point mean the client went away; the
	// response status is already committed.
	_, _ = io.Copy(w, resp.Body)
	return nil
}

// Handler mounts the forwarded analytics routes.
type Handler struct {
	logger *slog.Logger
	client *Client
}

func NewHandler(logger *slog.Logger, client *Client) *Handler {
	return &Handler{logger: logger, client: client}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/analytics", func(ar chi.Router) {
		ar.Post("/eoq/calculate", h.forward("/eoq/calculate"))
		ar.Get("/eoq/recommendations", h.forward("/eoq/recommendations"))
		ar.Post("/forecast/demand", h.forward("/forecast/demand"))
		ar.Get("/inventory/health", h.forward("/inventory/health"))
		ar.Get("/abc-analysis", h.forward("/abc-analysis"))
		ar.Post("/sales-data/import", h.forward("/sales-data/import"))
		ar.Post("/calculate-holding-cost", h.forward("/calculate-holding-cost"))
		ar.Post("/calculate-ordering-cost", h.forward("/calculate-ordering-cost"))
		ar.Get("/health", h.forward("/health"))
	})
}

func (h *Handler) forward(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.client.Forward(w, r, path); err != nil {
			h.logger.Error("forward analytics request",
				slog.String("path", path), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "analytics service unavailable")
		}
	}
}
