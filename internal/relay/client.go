// Package relay implements the best-effort outbound webhook used to forward
// persisted form submissions to the external automation channel.
//
// Delivery semantics (deliberately strict and simple):
//   - A delivery succeeds only on HTTP 200. Any other status, a transport
//     error, or a timeout is a failure.
//   - Failures are reported to the caller as an error but are never fatal to
//     the request that triggered them: the durable record is already
//     committed and keeps its relay flag unset for later reconciliation.
//   - Each client carries its own bounded timeout so a slow webhook can never
//     block the persistence path indefinitely.
//
// The package does not log; callers decide how failures are reported.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// deliveries counts webhook delivery attempts by payload type and outcome
// ("ok", "status", "transport"). Registered once at package init, mirroring
// the HTTP middleware collectors.
var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_deliveries_total",
		Help: "Total number of automation webhook delivery attempts.",
	},
	[]string{"type", "outcome"},
)

func init() {
	prometheus.MustRegister(deliveries)
}

// Payload is the envelope posted to the automation webhook. Type is the
// submission-type discriminator ("advisory", "quote", "newsletter"); Fields
// carries the normalized submission attributes.
type Payload struct {
	Type   string
	Fields map[string]any
}

// MarshalJSON flattens Fields next to the type discriminator so the webhook
// receives a single flat object, matching what the automation scenarios
// already parse.
func (p Payload) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		flat[k] = v
	}
	flat["type"] = p.Type
	return json.Marshal(flat)
}

// Client posts JSON payloads to a single configured webhook URL with a
// bounded timeout. The zero-value (or a client built from an empty URL) is
// disabled: Send becomes a no-op reporting ErrDisabled.
type Client struct {
	url  string
	http *http.Client
}

// ErrDisabled is returned by Send when no webhook URL is configured.
var ErrDisabled = fmt.Errorf("relay: no webhook configured")

// New builds a Client for url with the given per-request timeout. An empty
// url yields a disabled client.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has a webhook URL to deliver to.
func (c *Client) Enabled() bool { return c != nil && c.url != "" }

// Send posts the payload and returns nil only when the webhook answered
// HTTP 200. The request honors both ctx and the client timeout, whichever
// fires first.
func (c *Client) Send(ctx context.Context, p Payload) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	body, err := json.Marshal(p)
	if err != nil {
		deliveries.WithLabelValues(p.Type, "transport").Inc()
		return fmt.Errorf("relay: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		deliveries.WithLabelValues(p.Type, "transport").Inc()
		return fmt.Errorf("relay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		deliveries.WithLabelValues(p.Type, "transport").Inc()
		return fmt.Errorf("relay: post: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode != http.StatusOK {
		deliveries.WithLabelValues(p.Type, "status").Inc()
		return fmt.Errorf("relay: webhook returned %d", resp.StatusCode)
	}

	deliveries.WithLabelValues(p.Type, "ok").Inc()
	return nil
}
