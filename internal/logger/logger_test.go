package logger_test

import (
	"bytes"
	"io"
	"testing"

	"codeberg.org/mutker/padstate/internal/errors"
	"codeberg.org/mutker/padstate/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("INFO"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel(""))
}

func TestComponentLoggerTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	defer logger.InitWithWriter(io.Discard, "warn", true)

	log := logger.New("poller").With("device", "js0")
	log.Info().Int("ticks", 3).Msg("tick")

	out := buf.String()
	assert.Contains(t, out, "tick")
	assert.Contains(t, out, "component=poller")
	assert.Contains(t, out, "device=js0")
	assert.Contains(t, out, "ticks=3")
}

func TestLevelFiltersEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warn", true)
	defer logger.InitWithWriter(io.Discard, "warn", true)

	logger.Debug().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	defer logger.InitWithWriter(io.Discard, "warn", true)

	err := errors.New().Wrap(errors.ErrOpenDevice, io.EOF)
	logger.New("joystick").ErrorWithCode(err).Msg("open failed")

	assert.Contains(t, buf.String(), "error_code=open_device_failed")
	assert.Contains(t, buf.String(), "component=joystick")
}

func TestErrorWithCodeData(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)
	defer logger.InitWithWriter(io.Discard, "warn", true)

	err := errors.New().WithData(errors.ErrInvalidDeadzone, 1.5)
	logger.New("config").ErrorWithCode(err).Msg("rejected")

	assert.Contains(t, buf.String(), "error_data=1.5")
	assert.Contains(t, buf.String(), `error_message="Invalid deadzone threshold"`)
}
