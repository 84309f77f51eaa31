package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeConflict        = "CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

// statusOf maps a core error to its HTTP status and code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusForbidden, CodeUnauthorized
	case errors.Is(err, types.ErrValidation):
		return http.StatusUnprocessableEntity, CodeInvalidArgument
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// codeOfStatus maps statuses raised by echo itself.
func codeOfStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusConflict:
		return CodeConflict
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// errorHandler renders errors as ErrorBody. Core errors keep their message;
// persistence and unknown failures are reported as a bare 500.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var body ErrorBody
		var status int
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body.Code = codeOfStatus(status)
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			} else {
				body.Error = http.StatusText(status)
			}
		} else {
			status, body.Code = statusOf(err)
			body.Error = err.Error()
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				body.Fields = verr.Fields
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("HTTP error",
				zap.Error(err),
				zap.Int("status", status),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
			body.Error = http.StatusText(status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}
