package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultURL is the public directory the widget reads from.
const DefaultURL = "https://jsonplaceholder.typicode.com/users"

// ErrMalformedBody is returned when the upstream answers 2xx with a body that
// is not a JSON array of records.
var ErrMalformedBody = errors.New("records: malformed upstream body")

// StatusError reports a non-2xx upstream answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("records: upstream returned status %d", e.Code)
}

// Client wraps read access to the upstream user directory.
type Client struct {
	url        string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient constructs a client. A zero timeout leaves requests bounded only
// by their context.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("github.com/odyssey-erp/userboard/internal/records"),
	}
}

// List fetches the full record set in upstream order.
func (c *Client) List(ctx context.Context) (Set, error) {
	ctx, span := c.tracer.Start(ctx, "records.List", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.url", c.url))

	set, err := c.list(ctx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("records.count", len(set)))
	return set, nil
}

func (c *Client) list(ctx context.Context, span trace.Span) (Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("records: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("records: fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var set Set
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	// A literal null decodes without error but is not a record array.
	if set == nil {
		return nil, fmt.Errorf("%w: expected array", ErrMalformedBody)
	}
	return set, nil
}
