package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoneLogger(t *testing.T) {
	t.Run("implements the Logger interface", func(_ *testing.T) {
		var _ Logger = &NoneLogger{}
	})

	t.Run("discards everything without panicking", func(t *testing.T) {
		l := &NoneLogger{}

		assert.NotPanics(t, func() {
			l.Info("a", "b")
			l.Infof("%s", "a")
			l.Infoln("a")
			l.Error("a")
			l.Errorf("%s", "a")
			l.Errorln("a")
			l.Warn("a")
			l.Warnf("%s", "a")
			l.Warnln("a")
			l.Debug("a")
			l.Debugf("%s", "a")
			l.Debugln("a")
		})
	})

	t.Run("chaining returns the same no-op logger", func(t *testing.T) {
		l := &NoneLogger{}

		assert.Same(t, Logger(l), l.WithFields("key", "value"))
		assert.Same(t, Logger(l), l.WithDefaultMessageTemplate("prefix: "))
		assert.NoError(t, l.Sync())
	})
}
