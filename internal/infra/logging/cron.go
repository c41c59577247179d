package logging

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var _ cron.Logger = CronLogger{}

// CronLogger routes robfig/cron's key/value logs into zerolog.
// Info messages are emitted at debug level; cron is chatty on every schedule.
type CronLogger struct {
	Log *zerolog.Logger
}

func NewCronLogger(l *zerolog.Logger) CronLogger {
	return CronLogger{Log: l}
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
