package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCommand()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["report"])
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	_, err := execute(t, "migrate", "sideways", "--config", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "migrate", "--config", t.TempDir())
	assert.Error(t, err)
}

func TestReportDivergencesOnMemoryStore(t *testing.T) {
	out, err := execute(t, "report", "divergences", "--memory", "--config", t.TempDir(), "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestReportDivergencesRejectsNegativeThreshold(t *testing.T) {
	_, err := execute(t, "report", "divergences", "--memory", "--config", t.TempDir(), "--threshold", "-1", "--log-level", "error")
	assert.Error(t, err)
}

func TestReportExpeditionWritesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expedition.csv")
	_, err := execute(t, "report", "expedition", "--memory", "--config", t.TempDir(), "--out", path, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
}

func TestReportProductivityRejectsBadDate(t *testing.T) {
	_, err := execute(t, "report", "productivity", "--memory", "--config", t.TempDir(), "--from", "10/05/2024", "--log-level", "error")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "report", "divergences", "--memory", "--config", t.TempDir(), "--log-level", "loud")
	assert.Error(t, err)
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2024-05-10")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, 10, day.Day())

	day, err = parseDay("")
	require.NoError(t, err)
	assert.Nil(t, day)
}
