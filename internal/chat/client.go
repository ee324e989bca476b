package chat

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

// Client posts system notifications to the chat service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}}
}

func (c *Client) Notify(ctx context.Context, orderID, content string) error {
	body, err := json.Marshal(NotifyRequest{OrderID: orderID, Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/system_notify", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Transport("chat", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return apperr.New(apperr.UpstreamUnavailable, "chat service answered %d", resp.StatusCode)
	}
	return nil
}
