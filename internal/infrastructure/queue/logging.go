package queue

import (
	"fmt"

	"github.com/rs/zerolog"
)

// asynqLogger adapts a zerolog.Logger to the asynq.Logger interface.
type asynqLogger struct {
	log zerolog.Logger
}

func newAsynqLogger(log zerolog.Logger) *asynqLogger {
	return &asynqLogger{log: log.With().Str("component", "asynq").Logger()}
}

func (a *asynqLogger) Debug(args ...interface{}) {
	a.log.Debug().Msg(fmt.Sprint(args...))
}

func (a *asynqLogger) Info(args ...interface{}) {
	a.log.Info().Msg(fmt.Sprint(args...))
}

func (a *asynqLogger) Warn(args ...interface{}) {
	a.log.Warn().Msg(fmt.Sprint(args...))
}

func (a *asynqLogger) Error(args ...interface{}) {
	a.log.Error().Msg(fmt.Sprint(args...))
}

func (a *asynqLogger) Fatal(args ...interface{}) {
	a.log.Error().Msg(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
