package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"
)

// These tests mutate the global logger and must not run in parallel.

func TestSetup_JSONRespectsLevel(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	Setup(Options{JSON: true, Out: &buf})
	assert.False(t, DebugEnabled())

	log.Debug().Msg("hidden")
	log.Info().Str("task_id", "t1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"task_id":"t1"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestFxLogger_ReportsFailuresAtError(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	Setup(Options{JSON: true, Out: &buf})

	FxLogger{}.LogEvent(&fxevent.Started{})
	assert.Empty(t, buf.String())

	FxLogger{}.LogEvent(&fxevent.Started{Err: errors.New("boom")})
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "boom")
}
