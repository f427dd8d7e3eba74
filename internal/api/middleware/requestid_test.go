package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/settleup/settleup-api/pkg/logger"
)

func TestRequestContext_ReusesIncomingID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	handler := RequestContext(zerolog.New(&buf))(func(c echo.Context) error {
		logger.FromEcho(c).Info().Msg("inside")
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "req-123" {
		t.Fatalf("expected response id req-123, got %q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "req-123" {
		t.Fatalf("request_id missing from log line: %v", line)
	}
}

func TestRequestContext_GeneratesID(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := RequestContext(zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestAccessLog_RendersHandlerError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var buf bytes.Buffer
	logger.SetEcho(c, zerolog.New(&buf))

	handler := AccessLog()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	if err := handler(c); err != nil {
		t.Fatalf("expected error to be handled, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["level"] != "warn" || line["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected access log line: %v", line)
	}
}
