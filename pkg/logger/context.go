package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const echoKey = "logger"

// FromContext returns the request-scoped logger stored in ctx, falling back
// to the singleton (or a no-op logger before Init).
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback()
}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromEcho returns the logger installed on the echo context by the request id middleware.
func FromEcho(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(echoKey).(*zerolog.Logger); ok {
		return l
	}
	return FromContext(c.Request().Context())
}

// SetEcho stores l on the echo context and on the request context.
func SetEcho(c echo.Context, l zerolog.Logger) {
	c.Set(echoKey, &l)
	c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), l)))
}

func fallback() *zerolog.Logger {
	if !initialized {
		nop := zerolog.Nop()
		return &nop
	}
	return &instance
}
