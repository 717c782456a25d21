package sheets

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
	"github.com/swcolombo/waitlist-api/pkg/httpclient"
)

// readForm decodes a multipart request into ordered fields
func readForm(t *testing.T, r *http.Request) []Field {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	mr := multipart.NewReader(r.Body, params["boundary"])
	var fields []Field
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		value, err := io.ReadAll(part)
		require.NoError(t, err)
		fields = append(fields, Field{Key: part.FormName(), Value: string(value)})
	}
	return fields
}

func newTestServer(t *testing.T, status int, body string, seen *[]Field) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if seen != nil {
			*seen = readForm(t, r)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLead_FieldsOmitsEmptyOptionals(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want []Field
	}{
		{
			name: "basic",
			lead: Lead{Name: "Jane Doe", Email: "jane@example.com"},
			want: []Field{{FieldName, "Jane Doe"}, {FieldEmail, "jane@example.com"}},
		},
		{
			name: "professional",
			lead: Lead{Name: "Jane Doe", Email: "jane@example.com", Designation: "Other", Company: "Acme", Contact: "+94 77 123 4567"},
			want: []Field{
				{FieldName, "Jane Doe"},
				{FieldEmail, "jane@example.com"},
				{FieldDesignation, "Other"},
				{FieldCompany, "Acme"},
				{FieldContact, "+94 77 123 4567"},
			},
		},
		{
			name: "contact only",
			lead: Lead{Name: "Jane Doe", Email: "jane@example.com", Contact: "0771234567"},
			want: []Field{{FieldName, "Jane Doe"}, {FieldEmail, "jane@example.com"}, {FieldContact, "0771234567"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.lead.Fields()); diff != "" {
				t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		strict     bool
		want       *Outcome
		wantRemote bool
		wantMsg    string
	}{
		{name: "empty body", body: "", want: &Outcome{Implicit: true}},
		{name: "whitespace body", body: "  \n", want: &Outcome{Implicit: true}},
		{name: "json null", body: "null", want: &Outcome{Implicit: true}},
		{name: "html body", body: "<html>ok</html>", want: &Outcome{Implicit: true}},
		{name: "success", body: `{"result":"success"}`, want: &Outcome{}},
		{name: "success deduped", body: `{"result":"success","deduped":true}`, want: &Outcome{Deduped: true}},
		{name: "error with text", body: `{"result":"error","error":"Email already used in another campaign"}`, wantRemote: true, wantMsg: "Email already used in another campaign"},
		{name: "error without text", body: `{"result":"error"}`, wantRemote: true},
		{name: "missing result", body: `{}`, wantRemote: true},
		{name: "error object message", body: `{"result":"error","error":{"message":"Sheet locked"}}`, wantRemote: true, wantMsg: "Sheet locked"},
		{name: "error with odd deduped", body: `{"result":"error","error":"Sheet locked","deduped":"no"}`, wantRemote: true, wantMsg: "Sheet locked"},
		{name: "error with numeric error", body: `{"result":"error","error":42}`, wantRemote: true},
		{name: "non-string result", body: `{"result":true}`, wantRemote: true},
		{name: "json array", body: `["error"]`, wantRemote: true},
		{name: "json string", body: `"error"`, wantRemote: true},
		{name: "json number", body: `1`, wantRemote: true},
		{name: "success string deduped", body: `{"result":"success","deduped":"true"}`, want: &Outcome{Deduped: true}},
		{name: "success odd deduped", body: `{"result":"success","deduped":1}`, want: &Outcome{}},
		{name: "truncated json", body: `{"result":"error"`, want: &Outcome{Implicit: true}},
		{name: "strict html body", body: "<html>ok</html>", strict: true, wantRemote: true},
		{name: "strict empty body", body: "", strict: true, want: &Outcome{Implicit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpret([]byte(tt.body), tt.strict)
			if tt.wantRemote {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.ErrRemote))
				if tt.wantMsg != "" {
					assert.Contains(t, err.Error(), tt.wantMsg)
				}
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_SubmitSendsMultipartWithoutHoneypot(t *testing.T) {
	var seen []Field
	srv := newTestServer(t, http.StatusOK, `{"result":"success"}`, &seen)
	client := NewClient(srv.URL, httpclient.NewStandardClient(time.Second))

	lead := Lead{Name: "Jane Doe", Email: "jane@example.com", Company: "Acme"}
	outcome, err := client.Submit(context.Background(), lead)
	require.NoError(t, err)
	assert.False(t, outcome.Deduped)

	want := []Field{{FieldName, "Jane Doe"}, {FieldEmail, "jane@example.com"}, {FieldCompany, "Acme"}}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	for _, f := range seen {
		assert.NotEqual(t, "phone", strings.ToLower(f.Key))
	}
}

func TestClient_SubmitNon2xxIsTransportError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, "oops", nil)
	client := NewClient(srv.URL, httpclient.NewStandardClient(time.Second))

	_, err := client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, "HTTP 500", Detail(err))
}

func TestClient_SubmitDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, httpclient.NewStandardClient(time.Second))
	_, err := client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_SubmitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, httpclient.NewStandardClient(5*time.Second), WithTimeout(50*time.Millisecond))
	_, err := client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, "request timed out", Detail(err))
}

func TestClient_SubmitNotConfigured(t *testing.T) {
	client := NewClient("  ", httpclient.NewStandardClient(time.Second))
	assert.False(t, client.Configured())

	_, err := client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrNotConfigured)
}

func TestClient_RemoteErrorsDoNotOpenCircuit(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"result":"error","error":"Bad payload"}`, nil)
	client := NewClient(srv.URL, httpclient.NewStandardClient(time.Second))

	for i := 0; i < 8; i++ {
		_, err := client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrRemote))
	}
	assert.False(t, client.CircuitOpen())
}

func TestClient_OpenCircuitIsTransportError(t *testing.T) {
	srv := newTestServer(t, http.StatusServiceUnavailable, "", nil)
	client := NewClient(srv.URL, httpclient.NewStandardClient(time.Second))

	assert.False(t, client.CircuitOpen())

	var err error
	for i := 0; i < 6; i++ {
		_, err = client.Submit(context.Background(), Lead{Name: "Jane Doe", Email: "jane@example.com"})
	}
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTransport))
	assert.Equal(t, "service temporarily unavailable", Detail(err))
	assert.True(t, client.CircuitOpen())
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "", Detail(nil))
	assert.Equal(t, "", Detail(errors.New("mystery")))
	assert.Equal(t, "HTTP 404", Detail(apperrors.TransportError(&StatusError{StatusCode: 404})))
	assert.Equal(t, "request canceled", Detail(apperrors.TransportError(context.Canceled)))

	dial := &url.Error{Op: "Post", URL: "https://script.example/exec", Err: &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: errors.New("connect: connection refused"),
	}}
	assert.Equal(t, "dial: connect: connection refused", Detail(apperrors.TransportError(dial)))

	lookup := &url.Error{Op: "Post", URL: "https://script.example/exec", Err: &net.DNSError{Err: "no such host", Name: "script.example"}}
	assert.Equal(t, "no such host", Detail(apperrors.TransportError(lookup)))
}
