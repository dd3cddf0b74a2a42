package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, log.JSONFormatter, ParseFormat("json"))
	assert.Equal(t, log.LogfmtFormatter, ParseFormat("LOGFMT"))
	assert.Equal(t, log.TextFormatter, ParseFormat(""))
	assert.Equal(t, log.TextFormatter, ParseFormat("unknown"))
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentdeck.log")

	require.NoError(t, Init(Config{Level: "info", Format: "logfmt", File: path}))
	defer Close()

	log.Info("hello from test", "agent", "web_search_agent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), "agent=web_search_agent")
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "loud"}))
}
