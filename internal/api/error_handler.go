package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Code   domain.Code `json:"code"`
	Error  string      `json:"error"`
	Detail string      `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error categories to their HTTP status and stable code.
//   - Logs persistence and unexpected errors without leaking them to the client.
//   - Adds the underlying cause as detail outside production.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err)
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("code", string(body.Code)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request failed")
			if !production {
				body.Detail = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error) (int, errorResponse) {
	// Echo's own errors (route not found, method not allowed, body too large).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Code: codeForStatus(he.Code), Error: fmt.Sprintf("%v", he.Message)}
	}

	code := domain.CodeOf(err)
	switch code {
	case domain.CodeAuthentication:
		return http.StatusUnauthorized, errorResponse{Code: code, Error: err.Error()}
	case domain.CodeValidation:
		return http.StatusBadRequest, errorResponse{Code: code, Error: err.Error()}
	case domain.CodeInvalidTransition:
		return http.StatusUnprocessableEntity, errorResponse{Code: code, Error: err.Error()}
	case domain.CodeNotFound:
		return http.StatusNotFound, errorResponse{Code: code, Error: err.Error()}
	case domain.CodeForbidden:
		return http.StatusForbidden, errorResponse{Code: code, Error: "access forbidden"}
	case domain.CodePersistence:
		return http.StatusInternalServerError, errorResponse{Code: code, Error: "the request could not be completed"}
	}
	return http.StatusInternalServerError, errorResponse{Code: domain.CodeInternal, Error: "internal server error"}
}

func codeForStatus(status int) domain.Code {
	switch {
	case status == http.StatusUnauthorized:
		return domain.CodeAuthentication
	case status == http.StatusForbidden:
		return domain.CodeForbidden
	case status == http.StatusNotFound:
		return domain.CodeNotFound
	case status >= http.StatusInternalServerError:
		return domain.CodeInternal
	default:
		return domain.CodeValidation
	}
}
