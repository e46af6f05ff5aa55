package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/ytakahashi/todo-api/internal/auth"
	"github.com/ytakahashi/todo-api/internal/services"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}

// NewErrorHandler renders handler errors as ErrorResponse. Unexpected errors
// are logged and reported as 500 without their details.
func NewErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classify(err)
		if code == http.StatusInternalServerError {
			logger.Error("Request failed",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"err", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorResponse{
				StatusCode: code,
				Message:    message,
				Error:      http.StatusText(code),
			})
		}
		if writeErr != nil {
			logger.Warn("Failed to write error response", "err", writeErr)
		}
	}
}

func classify(err error) (int, any) {
	var validationErr *ValidationError
	var httpErr *echo.HTTPError

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Missing or empty x-user-id header"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Problems
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Todo not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
