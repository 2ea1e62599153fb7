package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feastline/concierge/internal/logging"
)

// Fallback is the stateless request/response transport used when the
// streaming channel is unavailable. No lifecycle, no events.
type Fallback struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewFallback creates a fallback transport. A timeout of 0 defaults to 20s;
// on timeout the caller treats the send like any other transport error.
func NewFallback(url string, timeout time.Duration, log *logging.Logger) *Fallback {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fallback{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.Sub("fallback"),
	}
}

// Send issues a single request and awaits one structured response.
func (f *Fallback) Send(ctx context.Context, req FallbackRequest) (*FallbackResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend error (%d): %s", resp.StatusCode, string(body))
	}

	var out FallbackResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	f.log.Debug().Str("messageId", out.MessageID).Msg("fallback response received")
	return &out, nil
}
