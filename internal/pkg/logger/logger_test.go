package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureEntry(t *testing.T, fn func()) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	fn()

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInfo_RedactsContactFields(t *testing.T) {
	entry := captureEntry(t, func() {
		Info("card created", "card_id", "r1", "email", "asha.rao@acme.in", "phone", "+91 98765 43210")
	})

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "card created", entry["msg"])
	assert.Equal(t, "r1", entry["card_id"])
	assert.Equal(t, "as***@acme.in", entry["email"])
	assert.Equal(t, "***3210", entry["phone"])
}

func TestInfo_RedactsEmbeddedEmails(t *testing.T) {
	entry := captureEntry(t, func() {
		Warn("rejected", "detail", "duplicate of ab@x.org")
	})
	assert.Equal(t, "duplicate of ***@x.org", entry["detail"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(INFO)
	})

	Info("dropped")
	assert.Zero(t, buf.Len())
	Error("kept")
	assert.Contains(t, buf.String(), `"kept"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestRedactPhone(t *testing.T) {
	assert.Equal(t, "***", RedactPhone("123"))
	assert.Equal(t, "***3210", RedactPhone("+91-98765-43210"))
}
