package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"corp-tax-agent-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{name: "not found", err: apperror.New(apperror.KindNotFound, "op", "report not found"), wantStatus: 404, wantKind: "NOT_FOUND", wantMsg: "report not found"},
		{name: "validation", err: apperror.New(apperror.KindValidation, "op", "text failed required"), wantStatus: 400, wantKind: "VALIDATION", wantMsg: "text failed required"},
		{name: "data unavailable", err: apperror.Wrap(apperror.KindDataUnavailable, "op", errors.New("dial tcp: refused")), wantStatus: 503, wantKind: "DATA_UNAVAILABLE", wantMsg: "Service Unavailable"},
		{name: "internal hides detail", err: apperror.New(apperror.KindInternal, "op", "pq: relation missing"), wantStatus: 500, wantKind: "INTERNAL", wantMsg: "Internal server error"},
		{name: "plain error", err: errors.New("boom"), wantStatus: 500, wantMsg: "Internal server error"},
		{name: "fiber error", err: fiber.NewError(fiber.StatusTeapot, "short and stout"), wantStatus: 418, wantMsg: "short and stout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware())
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantKind, body.ErrorKind)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Text string `validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(req{Text: "ok"}))

	err := ValidateRequest(req{})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Contains(t, err.Error(), "Text failed required")

	err = ValidateRequest(req{Text: "too long"})
	assert.Contains(t, err.Error(), "Text failed max=5")
}
