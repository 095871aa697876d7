package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx/fxevent"
)

// FxLogger routes fx lifecycle events to the global zerolog logger. Routine
// events go to debug, failures to error.
type FxLogger struct{}

var _ fxevent.Logger = FxLogger{}

// LogEvent implements fxevent.Logger.
func (FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		logResult(e.Err).
			Str("callee", e.FunctionName).
			Str("caller", e.CallerName).
			Dur("runtime", e.Runtime).
			Msg("fx start hook")
	case *fxevent.OnStopExecuted:
		logResult(e.Err).
			Str("callee", e.FunctionName).
			Str("caller", e.CallerName).
			Dur("runtime", e.Runtime).
			Msg("fx stop hook")
	case *fxevent.Provided:
		logResult(e.Err).
			Str("constructor", e.ConstructorName).
			Strs("types", e.OutputTypeNames).
			Msg("fx provided")
	case *fxevent.Invoked:
		logResult(e.Err).
			Str("function", e.FunctionName).
			Msg("fx invoked")
	case *fxevent.Started:
		logResult(e.Err).Msg("fx started")
	case *fxevent.Stopped:
		logResult(e.Err).Msg("fx stopped")
	}
}

func logResult(err error) *zerolog.Event {
	if err != nil {
		return log.Error().Err(err)
	}
	return log.Debug()
}
