package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Init(ctx, Options{}))

	counter, err := Meter(Scope).Int64Counter("questline.test.noop")
	require.NoError(t, err)
	counter.Add(ctx, 1)
	_, span := Tracer(Scope).Start(ctx, "noop")
	span.End()

	require.NoError(t, Shutdown(ctx))
}

func TestInit_EnabledExportsOnShutdown(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, Init(ctx, Options{Enabled: true, ServiceName: "questline-test", Writer: &buf}))
	t.Cleanup(func() { _ = Init(ctx, Options{}) })

	counter, err := Meter(Scope).Int64Counter("questline.test.transitions")
	require.NoError(t, err)
	counter.Add(ctx, 3)
	_, span := Tracer(Scope).Start(ctx, "progress.SetTaskStatus")
	span.End()

	require.NoError(t, Shutdown(ctx))
	out := buf.String()
	assert.Contains(t, out, "progress.SetTaskStatus")
	assert.Contains(t, out, "questline.test.transitions")
	assert.Contains(t, out, "questline-test")
}
