package acl

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Error codes a remote service may put in its error body.
const (
	ExternalCodeNotFound     = "NOT_FOUND"
	ExternalCodeConflict     = "CONFLICT"
	ExternalCodeValidation   = "VALIDATION_ERROR"
	ExternalCodeForbidden    = "FORBIDDEN"
	ExternalCodeUnauthorized = "UNAUTHORIZED"
)

// ErrorBody is a remote error response, either nested under "error" or flat.
type ErrorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// GetCode prefers the nested code over the flat one.
func (b *ErrorBody) GetCode() string {
	return cmp.Or(b.Error.Code, b.Code)
}

// GetMessage prefers the nested message over the flat one.
func (b *ErrorBody) GetMessage() string {
	return cmp.Or(b.Error.Message, b.Message)
}

// ParseErrorBody decodes an error body. It returns nil for a missing or
// non-JSON body and for one that carries neither a code nor a message.
func ParseErrorBody(body io.Reader) *ErrorBody {
	if body == nil {
		return nil
	}

	var b ErrorBody
	if err := json.NewDecoder(body).Decode(&b); err != nil {
		return nil
	}

	if b.GetCode() == "" && b.GetMessage() == "" {
		return nil
	}

	return &b
}

// Translate maps the outcome of a remote call to the domain error taxonomy.
// A 2xx response maps to nil. clientErr takes precedence over resp.
func Translate(service, operation string, resp *http.Response, clientErr error) error {
	if clientErr != nil {
		return fromClient(service, operation, clientErr)
	}

	if resp == nil {
		return domain.NewUnavailableError(service, "no response received")
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	return fromStatus(service, operation, resp)
}

func fromClient(service, operation string, err error) error {
	var reason string

	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		reason = "circuit breaker open during " + operation
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		reason = "max retries exceeded during " + operation
	default:
		reason = fmt.Sprintf("%s failed: %v", operation, err)
	}

	return domain.NewUnavailableError(service, reason)
}

var statusReasons = map[int]string{
	http.StatusBadRequest:         "invalid request",
	http.StatusUnauthorized:       "authentication required",
	http.StatusForbidden:          "access denied",
	http.StatusNotFound:           "resource not found",
	http.StatusConflict:           "resource conflict",
	http.StatusTooManyRequests:    "rate limit exceeded",
	http.StatusServiceUnavailable: "service temporarily unavailable",
}

func fromStatus(service, operation string, resp *http.Response) error {
	status := resp.StatusCode
	body := ParseErrorBody(resp.Body)

	message, ok := statusReasons[status]
	if !ok {
		message = fmt.Sprintf("%s failed with status %d", operation, status)
	}

	if body != nil && body.GetMessage() != "" {
		message = body.GetMessage()
	}

	switch {
	case status == http.StatusNotFound:
		return domain.NewNotFoundError(service, requestPath(resp))
	case status == http.StatusConflict:
		return domain.NewConflictError(service, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if body != nil {
			for field, msg := range body.Error.Details {
				return domain.NewValidationError(field, msg)
			}
		}

		return domain.NewValidationError("", message)
	case status == http.StatusUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required")
	case status == http.StatusForbidden:
		return domain.NewForbiddenError(operation, message)
	case status == http.StatusTooManyRequests:
		return domain.NewUnavailableError(service, "rate limit exceeded")
	case status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(service, message)
	case body != nil && body.GetCode() != "":
		return MapExternalCode(body.GetCode(), message, service, operation)
	default:
		return domain.NewValidationError("", message)
	}
}

// MapExternalCode maps an error code from a remote body to a domain error.
// Unknown codes are reported as the service being unavailable.
func MapExternalCode(code, message, service, operation string) error {
	switch code {
	case ExternalCodeNotFound:
		return domain.NewNotFoundError(service, "")
	case ExternalCodeConflict:
		return domain.NewConflictError(service, message)
	case ExternalCodeValidation:
		return domain.NewValidationError("", message)
	case ExternalCodeForbidden:
		return domain.NewForbiddenError(operation, message)
	case ExternalCodeUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required")
	default:
		return domain.NewUnavailableError(service, message)
	}
}

func requestPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}

	return resp.Request.URL.Path
}
