package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
)

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", domain.Invalid("Level is required for Client type"), http.StatusBadRequest, "Level is required for Client type"},
		{"not found", domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"invariant", domain.ErrClientAlreadyAssigned, http.StatusBadRequest, "client already has a manager assigned"},
		{"dependency", domain.ErrManagerNotFound, http.StatusBadRequest, "manager not found"},
		{"conflict", domain.ErrUserHasRelationships, http.StatusConflict, "user still has relationships, remove them first"},
		{"unavailable", domain.Unavailable("list users", errors.New("dial tcp: refused")), http.StatusInternalServerError, "internal server error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{"echo", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
	}

	e := echo.New()
	handle := NewHTTPErrorHandler(zerolog.Nop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			rec := httptest.NewRecorder()
			handle(tc.err, e.NewContext(req, rec))

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.msg {
				t.Errorf("expected message %q, got %q", tc.msg, body.Error)
			}
		})
	}
}
