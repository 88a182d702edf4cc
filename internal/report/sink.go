package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/componentry/healthmon/internal/models"
)

// Sink receives assembled reports. Delivery failures are logged by the caller
// and never retried within the same tick.
type Sink interface {
	Deliver(ctx context.Context, report models.Report) error
}

// HTTPSink posts reports as JSON to a configured endpoint.
type HTTPSink struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSink constructs a sink targeting url with the given request timeout.
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Deliver posts the report. Any non-2xx response is an error.
func (s *HTTPSink) Deliver(ctx context.Context, report models.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("report sink returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopSink discards reports; used when no sink URL is configured.
type NoopSink struct{}

// Deliver drops the report and reports success.
func (NoopSink) Deliver(context.Context, models.Report) error { return nil }
