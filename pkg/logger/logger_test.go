package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNamedLoggerKeepsName(t *testing.T) {
	lggr, logs := TestObserved(t, zapcore.InfoLevel)

	lggr.Named("favorites").Infof("[favorites] loaded %d records", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "favorites", entries[0].LoggerName)
	assert.Equal(t, "[favorites] loaded 2 records", entries[0].Message)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose", false)
	require.Error(t, err)
}
