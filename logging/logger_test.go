package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*AppForgeLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Output = &buf
	cfg.Level = level
	return NewLogger(cfg), &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestAppForgeLogger_KeyValues(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithComponent("loop").WithSession("s1").WithContext("role", "coordinator").Info("loop.iteration.start", "iteration", 2)
	l.Debug("hidden")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "loop.iteration.start", e["msg"])
	assert.Equal(t, "loop", e["component"])
	assert.Equal(t, "s1", e["session_id"])
	assert.Equal(t, "coordinator", e["role"])
	assert.Equal(t, float64(2), e["iteration"])
}

func TestAppForgeLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	l.LogModelCall("coordinator", "claude", 42, time.Millisecond, nil)
	l.LogModelCall("coordinator", "claude", 0, time.Millisecond, errors.New("overloaded"))
	l.LogActionDispatch("data_architect", "define_entity", "output", time.Millisecond, nil)
	l.LogLoopExecution("qa_engineer", 25, "exhausted", time.Second)

	entries := lines(t, buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "model.call.completed", entries[0]["msg"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "overloaded", entries[1]["error"])
	assert.Equal(t, "define_entity", entries[2]["action"])
	assert.Equal(t, "WARN", entries[3]["level"])
	assert.Equal(t, "exhausted", entries[3]["reason"])
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Info("ignored", "k", "v")
}
