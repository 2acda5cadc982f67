package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// ScriptLog emits one structured event per Host API control call
// (info/debug/error/status). It is deliberately a separate concern from
// Logger: Logger is a human-facing service log, ScriptLog is a
// machine-consumable per-module-execution event stream keyed by module and
// seed identity, and is cheap enough to enable per seed without drowning
// the service log.
type ScriptLog struct {
	logger zerolog.Logger
}

// NewScriptLog builds a ScriptLog writing newline-delimited JSON to w.
func NewScriptLog(w io.Writer) *ScriptLog {
	return &ScriptLog{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Event records one control-call event from a running module.
func (s *ScriptLog) Event(moduleRef, seedValue, level, message string) {
	var evt *zerolog.Event
	switch level {
	case "debug":
		evt = s.logger.Debug()
	case "error":
		evt = s.logger.Error()
	case "status":
		evt = s.logger.Info().Str("kind", "status")
	default:
		evt = s.logger.Info()
	}
	evt.Str("module", moduleRef).Str("seed", seedValue).Msg(message)
}
