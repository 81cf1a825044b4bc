package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCommands_LoadStatsAndKeys(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "rocbot.toml", fmt.Sprintf(`
[storage.badger]
path = %q

[logging]
level = "error"
output = ["stdout"]
`, filepath.Join(dir, "db")))

	docs := writeFile(t, dir, "docs.yaml", `
documents:
  - source: cityofrochester
    category: services
    title: Trash Pickup
    url: https://www.cityofrochester.gov/trash
    content: Trash is collected weekly.
  - source: eventbrite
    category: events
    title: Lilac Festival
    url: https://www.eventbrite.com/lilac
    date_start: "2026-05-08"
    content: Lilacs in Highland Park.
  - source: eventbrite
    category: events
    title: Missing URL
`)

	out := execute(t, "-c", cfgPath, "load", docs)
	assert.Contains(t, out, "2 loaded (2 new), 1 skipped")

	out = execute(t, "-c", cfgPath, "stats")
	assert.Contains(t, out, "Total documents: 2")
	assert.Contains(t, out, "eventbrite")

	out = execute(t, "-c", cfgPath, "keys", "set", "claude_api_key", "sk-ant-secret-1234")
	assert.Contains(t, out, "Stored claude_api_key")

	out = execute(t, "-c", cfgPath, "keys", "list")
	assert.Contains(t, out, "claude_api_key")
	assert.Contains(t, out, "****1234")
	assert.NotContains(t, out, "sk-ant-secret")

	out = execute(t, "-c", cfgPath, "keys", "delete", "claude_api_key")
	assert.Contains(t, out, "Deleted claude_api_key")
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "rocbot version")
}
