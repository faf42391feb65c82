package scheduler

import (
	"github.com/KoPyae2/Life-Desk/internal/logger"
	"github.com/rs/zerolog"
)

// cronLogger routes cron's own logging to zerolog. Routine scheduling
// chatter stays at debug level.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	withFields(logger.Log.Debug(), keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	withFields(logger.Log.Error().Err(err), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}
