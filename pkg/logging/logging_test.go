package logging_test

import (
	"testing"

	"github.com/fmreloaded/modman/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger_VerbosityLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		expected  zerolog.Level
	}{
		{name: "default_warn", verbosity: 0, expected: zerolog.WarnLevel},
		{name: "v_info", verbosity: 1, expected: zerolog.InfoLevel},
		{name: "vv_debug", verbosity: 2, expected: zerolog.DebugLevel},
		{name: "vvv_trace", verbosity: 3, expected: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logging.SetupLogger(tt.verbosity)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestGetLogger(t *testing.T) {
	logger := logging.GetLogger("engine")
	// Logging through a component logger must not panic
	logger.Debug().Msg("component logger works")
}
