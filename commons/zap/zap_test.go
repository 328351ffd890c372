package zap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	clog "github.com/LerianStudio/lib-breaker/commons/log"
)

func newTestLogger(t *testing.T) *ZapWithTraceLogger {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	return &ZapWithTraceLogger{Logger: logger.Sugar()}
}

func TestZapWithTraceLogger(t *testing.T) {
	t.Run("implements the Logger interface", func(t *testing.T) {
		var _ clog.Logger = newTestLogger(t)
	})

	t.Run("logs at every level without panicking", func(t *testing.T) {
		l := newTestLogger(t)

		assert.NotPanics(t, func() {
			l.Info("info")
			l.Infof("%s", "info")
			l.Infoln("info")
			l.Warn("warn")
			l.Warnf("%s", "warn")
			l.Warnln("warn")
			l.Error("error")
			l.Errorf("%s", "error")
			l.Errorln("error")
			l.Debug("debug")
			l.Debugf("%s", "debug")
			l.Debugln("debug")
		})
	})

	t.Run("WithFields returns an independent logger", func(t *testing.T) {
		l := newTestLogger(t)

		child := l.WithFields("circuit_breaker_name", "payments")
		assert.NotSame(t, clog.Logger(l), child)
		assert.NotPanics(t, func() { child.Info("with fields") })
	})

	t.Run("default message template prefixes entries", func(t *testing.T) {
		l := newTestLogger(t)

		child := l.WithDefaultMessageTemplate("breaker: ")
		assert.NotPanics(t, func() {
			child.Info("prefixed")
			child.Infof("%s", "prefixed")
		})
	})
}

func TestInitializeLogger(t *testing.T) {
	t.Run("builds a development logger by default", func(t *testing.T) {
		t.Setenv("ENV_NAME", "")

		logger, err := InitializeLogger()
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("builds a production logger when ENV_NAME says so", func(t *testing.T) {
		t.Setenv("ENV_NAME", "production")

		logger, err := InitializeLogger()
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("ignores an invalid LOG_LEVEL", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "not-a-level")

		logger, err := InitializeLogger()
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})
}
