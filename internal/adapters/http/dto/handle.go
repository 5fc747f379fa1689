package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// traceIDKey is the gin context key checked first for a trace ID.
	traceIDKey = "trace_id"

	// requestIDHeader is the fallback trace identifier.
	requestIDHeader = "X-Request-ID"

	msgUnavailable = "service temporarily unavailable"
	msgInternal    = "an internal error occurred"
	msgStorage     = "quote storage failed; changes were not applied"
)

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case domain.IsForbidden(err):
		return http.StatusForbidden, NewErrorResponse(ErrorCodeForbidden, err.Error())

	case domain.IsUnavailable(err):
		resp := NewErrorResponse(ErrorCodeUnavailable, msgUnavailable)

		var unavailableErr *domain.UnavailableError
		if errors.As(err, &unavailableErr) {
			resp.Error.Details = map[string]string{"service": unavailableErr.Service}
		}

		return http.StatusServiceUnavailable, resp

	case domain.IsStorage(err):
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeStorage, msgStorage)

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, msgInternal)
	}
}

// HandleError writes the error envelope for err, tagged with the trace ID.
// Server-side failures are logged with the full error.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	if resp == nil {
		return
	}

	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.String("code", resp.Error.Code),
			slog.Any("error", err),
		)
	}

	c.JSON(status, resp)
}

// HandleBindError writes a 400 for a request that failed binding or tag validation.
func HandleBindError(c *gin.Context, err error) {
	if fields := ValidationErrors(err); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails(
			ErrorCodeValidation,
			"request validation failed",
			fields,
		).WithTraceID(GetTraceID(c)))

		return
	}

	c.JSON(http.StatusBadRequest, NewErrorResponse(
		ErrorCodeBadRequest,
		"request body could not be parsed",
	).WithTraceID(GetTraceID(c)))
}

// GetTraceID returns the identifier used to correlate an error response.
// It prefers an explicit trace_id on the gin context, then the active span,
// then the request ID header.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(traceIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	if c.Request == nil {
		return ""
	}

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return c.GetHeader(requestIDHeader)
}
