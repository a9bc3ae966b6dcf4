package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ride-accounts/internal/service"
)

func TestErrorHandler(t *testing.T) {
	logger := zerolog.Nop()
	h := ErrorHandler(&logger)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantErrs   []string
	}{
		{"validation", service.BadRequest("validation failed", "email is required", "password is required"),
			http.StatusBadRequest, "validation failed", []string{"email is required", "password is required"}},
		{"conflict", service.Conflict("user with this email already exists"),
			http.StatusConflict, "user with this email already exists", nil},
		{"internal hides cause", service.Internal("something went wrong", errors.New("dial tcp 10.0.0.1")),
			http.StatusInternalServerError, "something went wrong", nil},
		{"echo error", echo.ErrNotFound, http.StatusNotFound, "Not Found", nil},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "something went wrong", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tt.err, c)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.StatusCode)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantErrs, body.Errors)
			assert.False(t, body.Success)
			assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		})
	}
}

func TestRespondEnvelope(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respond(c, http.StatusCreated, echo.Map{"k": "v"}, "created"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusCreated), body["statusCode"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"k": "v"}, body["data"])
}
