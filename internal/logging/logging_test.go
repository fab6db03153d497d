package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	globallog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestConfigureGlobalLogger(t *testing.T) {
	prevLogger, prevLevel := globallog.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		globallog.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	ConfigureGlobalLogger(false, &buf)
	globallog.Debug().Msg("hidden")
	globallog.Info().Str("ref", "q1").Msg("Found refs")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[INFO]")
	require.Contains(t, out, "Found refs")
	require.Contains(t, out, "ref=q1")

	buf.Reset()
	ConfigureGlobalLogger(true, &buf)
	globallog.Debug().Msg("visible")
	require.Contains(t, buf.String(), "[DEBUG]")
	require.Contains(t, buf.String(), "visible")
}
