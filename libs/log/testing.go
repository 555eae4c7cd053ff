package log

import (
	"os"
	"testing"
)

// TestingLogger returns a logger that writes to STDERR if the tests are run
// with the verbose (-v) flag, and discards all output otherwise.
//
// It must be called from inside a test, not from an init function, because
// the verbose flag is only parsed once testing has started.
func TestingLogger(t testing.TB) Logger {
	t.Helper()

	if testing.Verbose() {
		return MustNewDefaultLogger(os.Stderr, LogFormatPlain, LogLevelDebug)
	}

	return NewNopLogger()
}
