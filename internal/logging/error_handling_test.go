package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

type okCloser struct{ closed bool }

func (c *okCloser) Close() error { c.closed = true; return nil }

func TestSafeCloseWithLogging(t *testing.T) {
	t.Run("closes the resource", func(t *testing.T) {
		closer := &okCloser{}
		SafeCloseWithLogging(closer, nil, "test_close")
		assert.True(t, closer.closed)
	})

	t.Run("logs close failures", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		SafeCloseWithLogging(failingCloser{}, logger, "export_file")

		output := buf.String()
		assert.Contains(t, output, "failed to close resource")
		assert.Contains(t, output, `"operation":"export_file"`)
	})

	t.Run("tolerates nil closer", func(t *testing.T) {
		SafeCloseWithLogging(nil, nil, "noop")
	})
}

func TestHandleDeferredError(t *testing.T) {
	t.Run("sets the error when no original error exists", func(t *testing.T) {
		var originalErr error
		HandleDeferredError(&originalErr, func() error {
			return errors.New("deferred failure")
		}, nil, "flush_log")

		assert.Error(t, originalErr)
		assert.Contains(t, originalErr.Error(), "flush_log failed")
	})

	t.Run("keeps the original error", func(t *testing.T) {
		originalErr := errors.New("original")
		HandleDeferredError(&originalErr, func() error {
			return errors.New("deferred failure")
		}, nil, "flush_log")

		assert.Equal(t, "original", originalErr.Error())
	})

	t.Run("leaves nil error untouched on success", func(t *testing.T) {
		var originalErr error
		HandleDeferredError(&originalErr, func() error { return nil }, nil, "flush_log")
		assert.NoError(t, originalErr)
	})
}
