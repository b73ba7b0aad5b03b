package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoWritesJSONRecordWithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("connection accepted", KeyClientIP, "127.0.0.1:2049")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "connection accepted", record["msg"])
	require.Equal(t, "127.0.0.1:2049", record[KeyClientIP])
}

func TestDebugIsFilteredBelowInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Debug("should not appear")

	require.Empty(t, buf.String())
}

func TestSetLevelRaisesAndLowersThreshold(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "ERROR", "text", false)

	Warn("suppressed warning")
	require.Empty(t, buf.String())

	SetLevel("WARN")
	Warn("visible warning")
	require.True(t, strings.Contains(buf.String(), "visible warning"))
}

func TestSetFormatSwitchesToJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	SetFormat("json")
	Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "hello", record["msg"])
}
