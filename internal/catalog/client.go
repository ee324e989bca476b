package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/apperr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client calls the catalog service's inventory reduction endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client whose requests give up after timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type failureBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Available int    `json:"available"`
}

// Reserve posts {product_id, quantity} to /inventory/reduce. Timeouts and
// connection failures come back as UpstreamUnavailable; 4xx answers keep the
// kind and stock count reported by the catalog service.
func (c *Client) Reserve(ctx context.Context, productID string, quantity int) (int64, error) {
	body, err := json.Marshal(ReduceRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inventory/reduce", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build reserve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Transport("catalog", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out ReduceResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return 0, apperr.Wrap(apperr.UpstreamUnavailable, err, "catalog service sent an unreadable response")
		}
		return out.UnitPrice, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var fb failureBody
		_ = json.NewDecoder(resp.Body).Decode(&fb)
		kind := apperr.ParseKind(fb.Code)
		if kind == apperr.Internal {
			kind = apperr.Invalid
			if resp.StatusCode == http.StatusNotFound {
				kind = apperr.NotFound
			}
		}
		if fb.Message == "" {
			fb.Message = http.StatusText(resp.StatusCode)
		}
		return 0, &apperr.Error{Kind: kind, Message: fb.Message, Available: fb.Available}

	default:
		return 0, apperr.New(apperr.UpstreamUnavailable, "catalog service error (status %d)", resp.StatusCode)
	}
}
