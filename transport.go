package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/founderos/tracking-go/model"
)

// Outcome classifies the result of one batch delivery attempt.
type Outcome string

const (
	// OutcomeDelivered indicates the collector accepted the batch (2xx).
	OutcomeDelivered Outcome = "delivered"

	// OutcomeRejected indicates the batch is malformed or unauthorized (4xx).
	// Rejected batches are logged and discarded, never retried.
	OutcomeRejected Outcome = "rejected"

	// OutcomeTransientFailure indicates a recoverable failure (network
	// error, 5xx, or timeout). Eligible for retry with backoff.
	OutcomeTransientFailure Outcome = "transient_failure"
)

// Transport performs the network delivery of one batch. Implementations
// hold no state between calls besides the configured endpoint and
// credentials; retry policy lives in the Batcher, not here.
type Transport interface {
	// Send delivers the batch and classifies the result.
	// The error carries diagnostic detail for rejected and transient outcomes.
	Send(ctx context.Context, batch *model.Batch) (Outcome, error)
}

// HTTPTransport delivers batches as JSON over HTTP(S) to the collection
// endpoint, authenticated with the x-api-key header. Each request is
// bounded by the configured batch request timeout.
type HTTPTransport struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewHTTPTransport creates an HTTP transport for the given endpoint.
func NewHTTPTransport(apiURL, apiKey string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the serialized event array to the collection endpoint.
//
// Classification:
//   - 2xx → OutcomeDelivered
//   - 4xx → OutcomeRejected (not retried)
//   - anything else, network error, timeout → OutcomeTransientFailure
func (t *HTTPTransport) Send(ctx context.Context, batch *model.Batch) (Outcome, error) {
	payload, err := json.Marshal(batch.Events)
	if err != nil {
		// A batch that cannot be serialized will never succeed.
		return OutcomeRejected, NewErrorWithCause(ErrCodeDelivery, "failed to serialize batch", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(payload))
	if err != nil {
		return OutcomeRejected, NewErrorWithCause(ErrCodeDelivery, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return OutcomeTransientFailure, NewErrorWithCause(ErrCodeDelivery, "request failed", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OutcomeDelivered, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return OutcomeRejected, NewError(ErrCodeDelivery,
			fmt.Sprintf("batch rejected with status %d", resp.StatusCode))
	default:
		return OutcomeTransientFailure, NewError(ErrCodeDelivery,
			fmt.Sprintf("delivery failed with status %d", resp.StatusCode))
	}
}
