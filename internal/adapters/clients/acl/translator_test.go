package acl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// testConfig returns a single-attempt client config for baseURL.
func testConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "quote-mirror",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
	}
}

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestTranslate_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		reason string
	}{
		{"404", http.StatusNotFound, "", domain.IsNotFound, ""},
		{"409 uses body message", http.StatusConflict, `{"error":{"code":"CONFLICT","message":"duplicate title"}}`, domain.IsConflict, "duplicate title"},
		{"400", http.StatusBadRequest, "", domain.IsValidation, "invalid request"},
		{"422", http.StatusUnprocessableEntity, `{"message":"title too long"}`, domain.IsValidation, "title too long"},
		{"401", http.StatusUnauthorized, "", domain.IsForbidden, "authentication required"},
		{"403", http.StatusForbidden, "", domain.IsForbidden, "access denied"},
		{"429", http.StatusTooManyRequests, "", domain.IsUnavailable, "rate limit exceeded"},
		{"500", http.StatusInternalServerError, "", domain.IsUnavailable, "push quote failed with status 500"},
		{"502", http.StatusBadGateway, "", domain.IsUnavailable, "push quote failed with status 502"},
		{"503", http.StatusServiceUnavailable, "", domain.IsUnavailable, "service temporarily unavailable"},
		{"unknown 4xx without code", http.StatusTeapot, "", domain.IsValidation, "push quote failed with status 418"},
		{"unknown 4xx with code", http.StatusTeapot, `{"code":"FORBIDDEN","message":"read only"}`, domain.IsForbidden, "read only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate("quote-mirror", "push quote", response(tt.status, tt.body), nil)

			require.Error(t, err)
			assert.True(t, tt.check(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestTranslate_NotFoundCarriesPath(t *testing.T) {
	resp := response(http.StatusNotFound, "")
	resp.Request = httptest.NewRequest(http.MethodGet, "https://mirror.test/posts", nil)

	err := Translate("quote-mirror", "list quotes", resp, nil)

	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "quote-mirror", notFound.Entity)
	assert.Equal(t, "/posts", notFound.ID)
}

func TestTranslate_FieldValidation(t *testing.T) {
	body := `{"error":{"code":"VALIDATION_ERROR","message":"invalid","details":{"title":"required"}}}`

	err := Translate("quote-mirror", "push quote", response(http.StatusBadRequest, body), nil)

	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "title", validation.Field)
	assert.Equal(t, "required", validation.Message)
}

func TestTranslate_ClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"circuit open", clients.ErrCircuitOpen, "circuit breaker open during list quotes"},
		{"retries exhausted", fmt.Errorf("wrapped: %w", clients.ErrMaxRetriesExceeded), "max retries exceeded during list quotes"},
		{"transport", errors.New("connection refused"), "list quotes failed: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Translate("quote-mirror", "list quotes", nil, tt.err)

			var unavailable *domain.UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, "quote-mirror", unavailable.Service)
			assert.Equal(t, tt.reason, unavailable.Reason)
		})
	}
}

func TestTranslate_NoErrorCases(t *testing.T) {
	assert.NoError(t, Translate("quote-mirror", "push quote", response(http.StatusCreated, `{"id":101}`), nil))

	err := Translate("quote-mirror", "list quotes", nil, nil)
	assert.True(t, domain.IsUnavailable(err))
}

func TestMapExternalCode(t *testing.T) {
	tests := []struct {
		code  string
		check func(error) bool
	}{
		{ExternalCodeNotFound, domain.IsNotFound},
		{ExternalCodeConflict, domain.IsConflict},
		{ExternalCodeValidation, domain.IsValidation},
		{ExternalCodeForbidden, domain.IsForbidden},
		{ExternalCodeUnauthorized, domain.IsForbidden},
		{"SOMETHING_ELSE", domain.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := MapExternalCode(tt.code, "msg", "quote-mirror", "push quote")
			assert.True(t, tt.check(err), "got %T", err)
		})
	}
}

func TestParseErrorBody(t *testing.T) {
	nested := ParseErrorBody(strings.NewReader(`{"error":{"code":"CONFLICT","message":"dup"}}`))
	require.NotNil(t, nested)
	assert.Equal(t, "CONFLICT", nested.GetCode())
	assert.Equal(t, "dup", nested.GetMessage())

	flat := ParseErrorBody(strings.NewReader(`{"code":"FORBIDDEN","message":"read only"}`))
	require.NotNil(t, flat)
	assert.Equal(t, "FORBIDDEN", flat.GetCode())
	assert.Equal(t, "read only", flat.GetMessage())

	assert.Nil(t, ParseErrorBody(strings.NewReader(`<html>bad gateway</html>`)))
	assert.Nil(t, ParseErrorBody(strings.NewReader(`{}`)))
	assert.Nil(t, ParseErrorBody(nil))
}

func TestDecodeResponse(t *testing.T) {
	items, err := DecodeResponse[[]mirrorItem](io.NopCloser(strings.NewReader(`[{"id":1,"title":"a"}]`)))
	require.NoError(t, err)
	assert.Equal(t, []mirrorItem{{ID: 1, Title: "a"}}, *items)

	_, err = DecodeResponse[[]mirrorItem](io.NopCloser(strings.NewReader(`{"id":1}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")

	_, err = DecodeResponse[mirrorItem](nil)
	require.Error(t, err)
}

func TestDecodeResponseForService(t *testing.T) {
	_, err := DecodeResponseForService[[]mirrorItem](io.NopCloser(strings.NewReader(`not json`)), "quote-mirror")

	var unavailable *domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "quote-mirror", unavailable.Service)
}

func TestTranslateSlice(t *testing.T) {
	toQuote := func(item *mirrorItem) (*domain.Quote, error) {
		q, err := domain.NewQuote(item.Title, "API")
		return &q, err
	}

	quotes, err := TranslateSlice([]mirrorItem{{Title: "a"}, {Title: "b"}}, toQuote)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, domain.Quote{Text: "b", Category: "API"}, *quotes[1])

	_, err = TranslateSlice([]mirrorItem{{Title: "a"}, {Title: " "}}, toQuote)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translating item 1")
	assert.True(t, domain.IsValidation(err))

	empty, err := TranslateSlice([]mirrorItem{}, toQuote)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBaseAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":101}`))
		default:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":"CONFLICT","message":"busy"}}`))
		}
	}))
	defer server.Close()

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	adapter := NewBaseAdapter(client, "quote-mirror")
	assert.Equal(t, "quote-mirror", adapter.ServiceName())
	assert.Same(t, client, adapter.Client())

	body, err := adapter.Get(context.Background(), "/posts", "list quotes")
	assert.Nil(t, body)
	assert.True(t, domain.IsConflict(err))

	body, err = adapter.Post(context.Background(), "/posts", strings.NewReader(`{}`), "push quote")
	require.NoError(t, err)

	created, err := DecodeResponse[mirrorItem](body)
	require.NoError(t, err)
	assert.Equal(t, 101, created.ID)
}

func TestBaseAdapter_TransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := testConfig(url)
	cfg.Timeout = 500 * time.Millisecond

	client, err := clients.New(cfg)
	require.NoError(t, err)

	adapter := NewBaseAdapter(client, "quote-mirror")

	_, err = adapter.Get(context.Background(), "/posts", "list quotes")
	assert.True(t, domain.IsUnavailable(err))
}
