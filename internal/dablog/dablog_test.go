package dablog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_FiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "ofdm", LevelWarn)
	l.Debugf("should not appear")
	l.Infof("should not appear either")
	l.Warnf("sync lost at %d", 42)

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	require.Contains(t, out, "sync lost at 42")
	require.Contains(t, out, "[WARN]")
	require.Contains(t, out, "[ofdm]")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "fic", LevelError)
	l.Infof("hidden")
	require.Empty(t, buf.String())

	l.SetLevel(LevelInfo)
	l.Infof("visible")
	require.Contains(t, buf.String(), "visible")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "msc", LevelInfo)
	child := l.With("subchannel-3")
	child.Infof("decoding")
	require.True(t, strings.Contains(buf.String(), "[msc.subchannel-3]"))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("debug"))
	require.Equal(t, LevelWarn, ParseLevel("warn"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
