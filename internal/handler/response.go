package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ride-accounts/internal/service"
)

// apiResponse is the success envelope.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the failure envelope.
type apiError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	Success    bool     `json:"success"`
}

func respond(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, apiResponse{StatusCode: status, Data: data, Message: msg, Success: status < http.StatusBadRequest})
}

// ErrorHandler renders every error returned by handlers and middleware,
// including Echo's own (unknown route, oversized body), in the failure
// envelope.  Causes of internal errors are logged and never sent.
func ErrorHandler(logger *zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := apiError{StatusCode: http.StatusInternalServerError, Message: "something went wrong"}
		var se *service.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &se):
			body.StatusCode, body.Message, body.Errors = se.StatusCode(), se.Message, se.Errors
			if se.Kind == service.KindInternal {
				logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
		case errors.As(err, &he):
			body.StatusCode = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(he.Code)
			}
			if he.Code >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
		default:
			logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.StatusCode)
		} else {
			werr = c.JSON(body.StatusCode, body)
		}
		if werr != nil {
			logger.Warn().Err(werr).Msg("write error response failed")
		}
	}
}
