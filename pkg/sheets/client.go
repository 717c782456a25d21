// Package sheets talks to the spreadsheet-backed registration endpoint
// (a Google Apps Script web app) that stores waitlist leads.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/swcolombo/waitlist-api/pkg/circuitbreaker"
	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
	"github.com/swcolombo/waitlist-api/pkg/httpclient"
	"github.com/swcolombo/waitlist-api/pkg/logger"
	"github.com/swcolombo/waitlist-api/pkg/metrics"
	"github.com/swcolombo/waitlist-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	operationSubmit = "submit"

	// maxResponseBytes caps how much of the endpoint's reply is read
	maxResponseBytes = 64 * 1024

	// Fixed payload keys understood by the spreadsheet script
	FieldName        = "Name"
	FieldEmail       = "Email"
	FieldDesignation = "Designation"
	FieldCompany     = "Company"
	FieldContact     = "Contact"
)

// Lead is a validated lead ready for serialization
type Lead struct {
	Name        string
	Email       string
	Designation string
	Company     string
	Contact     string
}

// Field is one key/value pair of the outbound form body
type Field struct {
	Key   string
	Value string
}

// Fields returns the payload fields in wire order. Optional fields are
// omitted when empty, never sent as empty strings.
func (l Lead) Fields() []Field {
	fields := []Field{
		{Key: FieldName, Value: l.Name},
		{Key: FieldEmail, Value: l.Email},
	}
	if l.Designation != "" {
		fields = append(fields, Field{Key: FieldDesignation, Value: l.Designation})
	}
	if l.Company != "" {
		fields = append(fields, Field{Key: FieldCompany, Value: l.Company})
	}
	if l.Contact != "" {
		fields = append(fields, Field{Key: FieldContact, Value: l.Contact})
	}
	return fields
}

// Response is the optional JSON body returned by the endpoint
type Response struct {
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Deduped bool   `json:"deduped,omitempty"`
}

// Outcome describes an accepted submission
type Outcome struct {
	// Deduped is true when the endpoint already had this email
	Deduped bool
	// Implicit is true when success was assumed from an empty or unparseable body
	Implicit bool
}

// StatusError reports a non-2xx answer from the endpoint
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Client posts leads to the spreadsheet endpoint
type Client struct {
	endpoint       string
	httpClient     httpclient.Client
	circuitBreaker *gobreaker.CircuitBreaker
	timeout        time.Duration
	strict         bool
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds each submission. Zero leaves the HTTP client's own timeout in charge.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithStrictResponses makes a non-empty, unparseable body a remote error
// instead of an implicit success.
func WithStrictResponses(strict bool) Option {
	return func(c *Client) { c.strict = strict }
}

// NewClient creates a new spreadsheet endpoint client
func NewClient(endpoint string, httpClient httpclient.Client, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
		// business rejections mean the endpoint is healthy
		circuitBreaker: circuitbreaker.New("sheets", func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrRemote)
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an endpoint URL is set
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// CircuitOpen reports whether the breaker is currently refusing submissions
func (c *Client) CircuitOpen() bool {
	return circuitbreaker.IsOpen(c.circuitBreaker)
}

// Submit sends a lead with a single POST. It never retries.
func (c *Client) Submit(ctx context.Context, lead Lead) (*Outcome, error) {
	if !c.Configured() {
		return nil, apperrors.ErrNotConfigured
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "sheets.Submit",
		attribute.Int("sheets.field_count", len(lead.Fields())))
	defer span.End()

	start := time.Now()

	outcome, err := circuitbreaker.Execute(c.circuitBreaker, func() (*Outcome, error) {
		return c.post(ctx, lead)
	})
	if circuitbreaker.IsRejected(err) {
		err = apperrors.TransportError(err)
	}

	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.SheetRequestDuration.WithLabelValues(operationSubmit, status).Observe(duration)
	metrics.SheetRequestTotal.WithLabelValues(operationSubmit, status).Inc()

	if err != nil {
		logger.LogAPICall(ctx, "sheets", operationSubmit, status, duration, zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("sheets.deduped", outcome.Deduped),
		attribute.Bool("sheets.implicit_success", outcome.Implicit),
	)
	logger.LogAPICall(ctx, "sheets", operationSubmit, status, duration,
		zap.Bool("deduped", outcome.Deduped),
		zap.Bool("implicit", outcome.Implicit))

	return outcome, nil
}

func (c *Client) post(ctx context.Context, lead Lead) (*Outcome, error) {
	body, contentType, err := Encode(lead)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, apperrors.TransportError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	tracing.InjectHeaders(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, apperrors.TransportError(&StatusError{StatusCode: resp.StatusCode})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.TransportError(err)
	}

	return Interpret(raw, c.strict)
}

// Encode serializes a lead as a multipart form body
func Encode(lead Lead) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range lead.Fields() {
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// Interpret turns a 2xx body into an outcome.
//
// An empty body, a JSON null or (unless strict) a body that is not JSON at
// all is an implicit success. Any JSON value whose result is not "success"
// is a remote error.
func Interpret(raw []byte, strict bool) (*Outcome, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Outcome{Implicit: true}, nil
	}

	if !json.Valid(trimmed) {
		if strict {
			return nil, apperrors.RemoteError("")
		}
		logger.Warn("Unparseable endpoint response treated as success", zap.Int("bytes", len(trimmed)))
		return &Outcome{Implicit: true}, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return &Outcome{Implicit: true}, nil
	}

	parsed := decodeResponse(trimmed)
	if parsed.Result == "success" {
		return &Outcome{Deduped: parsed.Deduped}, nil
	}

	return nil, apperrors.RemoteError(strings.TrimSpace(parsed.Error))
}

// decodeResponse reads the known keys of a valid JSON body one by one, so a
// field of an unexpected type never hides the others. Non-object bodies
// yield an empty Response.
func decodeResponse(body []byte) Response {
	var out Response
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return out
	}

	_ = json.Unmarshal(fields["result"], &out.Result)

	if err := json.Unmarshal(fields["error"], &out.Error); err != nil {
		// {"error": {"message": "..."}}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(fields["error"], &nested) == nil {
			out.Error = nested.Message
		}
	}

	var deduped any
	if json.Unmarshal(fields["deduped"], &deduped) == nil {
		switch v := deduped.(type) {
		case bool:
			out.Deduped = v
		case string:
			out.Deduped = strings.EqualFold(v, "true")
		}
	}
	return out
}

// Detail extracts a short, user-safe description of a transport failure.
// It never includes the endpoint URL. Empty when nothing useful is known.
func Detail(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if circuitbreaker.IsRejected(err) {
		return circuitbreaker.ErrUnavailable.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Op + ": " + opErr.Err.Error()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "request timed out"
		}
		if urlErr.Err != nil {
			return urlErr.Err.Error()
		}
	}

	return ""
}
