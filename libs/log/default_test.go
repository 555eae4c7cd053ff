package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zunkfs/zunkdb/libs/log"
)

func TestNewDefaultLogger(t *testing.T) {
	testCases := map[string]struct {
		format    string
		level     string
		expectErr bool
	}{
		"invalid format": {
			format:    "foo",
			level:     log.LogLevelInfo,
			expectErr: true,
		},
		"invalid level": {
			format:    log.LogFormatJSON,
			level:     "foo",
			expectErr: true,
		},
		"json format": {
			format: log.LogFormatJSON,
			level:  log.LogLevelInfo,
		},
		"plain format": {
			format: log.LogFormatPlain,
			level:  log.LogLevelInfo,
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := log.NewDefaultLogger(&bytes.Buffer{}, tc.format, tc.level)
			if tc.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDefaultLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer

	logger := log.MustNewDefaultLogger(&buf, log.LogFormatJSON, log.LogLevelInfo)
	logger.Debug("dropped", "key", "value")
	assert.Empty(t, buf.String())

	logger.Info("kept", "addr", "127.0.0.1:9876")
	assert.Contains(t, buf.String(), `"kept"`)
	assert.Contains(t, buf.String(), "127.0.0.1:9876")
}

func TestDefaultLoggerWith(t *testing.T) {
	var buf bytes.Buffer

	logger := log.MustNewDefaultLogger(&buf, log.LogFormatJSON, log.LogLevelDebug)
	logger.With("module", "client").Error("boom", "err", "broken pipe")

	out := buf.String()
	assert.Contains(t, out, `"module":"client"`)
	assert.Contains(t, out, "broken pipe")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
