package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoip/internal/rangetable"
)

const testRangeFile = "../../testdata/geo.txt"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLookupCommand(t *testing.T) {
	out, err := run(t, "lookup", "--file", testRangeFile, "87.229.134.24", "2.20.4.0", "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "87.229.134.24\tRU\n2.20.4.0\tIT\n1.1.1.1\tZZ\n", out)
}

func TestLookupCommand_Strict(t *testing.T) {
	_, err := run(t, "lookup", "--file", testRangeFile, "--strict", "1.2.3")
	assert.Error(t, err)

	out, err := run(t, "lookup", "--file", testRangeFile, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\tZZ\n", out)
}

func TestDumpCommand(t *testing.T) {
	out, err := run(t, "dump", "-f", testRangeFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 8)
	assert.Contains(t, lines, "5.8\t65280-65535\tDE")
	assert.Contains(t, lines, "5.9\t0-255\tDE")
}

func TestStatsCommand(t *testing.T) {
	out, err := run(t, "stats", "-f", testRangeFile)
	require.NoError(t, err)

	var stats rangetable.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 5, stats.Ranges)
	assert.Equal(t, 8, stats.Blocks)
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "stats", "-f", "/nonexistent/geo.txt")
	assert.Error(t, err)
}
