package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   domain.Code
	}{
		{"authentication", fmt.Errorf("%w: token expired", domain.ErrAuthentication), http.StatusUnauthorized, domain.CodeAuthentication},
		{"validation", domain.Invalid("items", "must contain at least one item"), http.StatusBadRequest, domain.CodeValidation},
		{"transition", fmt.Errorf("%w: completed -> pending", domain.ErrInvalidTransition), http.StatusUnprocessableEntity, domain.CodeInvalidTransition},
		{"not found", domain.ErrOrderNotFound, http.StatusNotFound, domain.CodeNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, domain.CodeForbidden},
		{"persistence", fmt.Errorf("create order: %w: %w", domain.ErrPersistence, errors.New("conn reset")), http.StatusInternalServerError, domain.CodePersistence},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domain.CodeInternal},
		{"echo route", echo.ErrNotFound, http.StatusNotFound, domain.CodeNotFound},
		{"echo method", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, domain.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop(), true)(tc.err, c)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, body.Code)
			}
			if body.Detail != "" {
				t.Fatalf("detail leaked in production: %q", body.Detail)
			}
		})
	}
}

func TestHTTPErrorHandler_InternalDetail(t *testing.T) {
	cause := fmt.Errorf("create order: %w: %w", domain.ErrPersistence, errors.New("conn reset"))

	for _, production := range []bool{true, false} {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/orders", nil), rec)

		NewHTTPErrorHandler(zerolog.Nop(), production)(cause, c)

		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != "the request could not be completed" {
			t.Fatalf("cause leaked into message: %q", body.Error)
		}
		if gotDetail := body.Detail != ""; gotDetail == production {
			t.Fatalf("production=%v: detail = %q", production, body.Detail)
		}
	}
}
