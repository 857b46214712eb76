package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hardware-inventory/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

// cleanEnv keeps the developer's environment out of the commands.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "STORAGE_DRIVER", "STORAGE_KEY", "FILE_ROOT", "MAPPING_PATH", "LOG_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

// run executes the CLI against the file driver rooted at dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--driver", "file", "--data", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

func TestAddListSearchDelete(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()

	out := mustRun(t, dir, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S1", "--cost", "50")
	assert.Contains(t, out, "Added ")
	assert.Contains(t, out, "Laptop · Dell · X1 (S1), 50.00/month")
	assert.NotContains(t, out, "set by group")

	out = mustRun(t, dir, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S2", "--cost", "99")
	assert.Contains(t, out, "(S2), 50.00/month (set by group)")

	mustRun(t, dir, "add", "--name", "Monitor", "--brand", "LG", "--model", "27UK", "--serial", "M1", "--details", "finance")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "SERIAL")
	assert.Contains(t, out, "S1")
	assert.Contains(t, out, "M1")
	assert.Contains(t, out, "3 items in 2 groups, 100.00/month")

	out = mustRun(t, dir, "search", "FINANCE")
	assert.Contains(t, out, "M1")
	assert.NotContains(t, out, "S1")

	out = mustRun(t, dir, "search", "nothing-like-this")
	assert.Contains(t, out, "No hardware found.")

	out = mustRun(t, dir, "delete", "S1", "M1")
	assert.Contains(t, out, "Deleted ")
	assert.Contains(t, out, "Monitor · LG · 27UK (M1)")

	out = mustRun(t, dir, "list", "--json")
	var groups models.Groups
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)
	require.Len(t, groups["Laptop|Dell|X1"], 1)
	assert.Equal(t, "S2", groups["Laptop|Dell|X1"][0].SerialNumber)
}

func TestEdit(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	mustRun(t, dir, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S1", "--cost", "50")

	out := mustRun(t, dir, "edit", "S1", "--model", "X2", "--cost", "70", "--details", "upgraded")
	assert.Contains(t, out, "Updated ")
	assert.Contains(t, out, "Laptop · Dell · X2 (S1), 70.00/month")

	out = mustRun(t, dir, "list", "--json")
	var groups models.Groups
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.NotContains(t, groups, "Laptop|Dell|X1")
	require.Len(t, groups["Laptop|Dell|X2"], 1)
	assert.Equal(t, "upgraded", groups["Laptop|Dell|X2"][0].Details)
}

func TestCommandErrors(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	mustRun(t, dir, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S1")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing brand", []string{"add", "--name", "Desk", "--model", "B", "--serial", "D1"}, "Brand is required"},
		{"duplicate serial", []string{"add", "--name", "Desk", "--brand", "Ikea", "--model", "B", "--serial", "S1"}, "serial number already exists"},
		{"bad cost", []string{"add", "--name", "Desk", "--brand", "Ikea", "--model", "B", "--serial", "D1", "--cost", "cheap"}, "invalid --cost"},
		{"separator in name", []string{"add", "--name", "Desk|Chair", "--brand", "Ikea", "--model", "B", "--serial", "D1"}, `Name: must not contain "|"`},
		{"negative cost", []string{"add", "--name", "Desk", "--brand", "Ikea", "--model", "B", "--serial", "D1", "--cost", "-1"}, "must not be negative"},
		{"unknown item", []string{"delete", "nope"}, "item not found"},
		{"edit unknown", []string{"edit", "nope", "--name", "x"}, "item not found"},
		{"search needs a query", []string{"search"}, "accepts 1 arg"},
		{"unknown driver", []string{"list", "--driver", "floppy"}, "unknown storage driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, dir, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error()+out, tt.want)
		})
	}

	out := mustRun(t, dir, "list")
	assert.Contains(t, out, "1 items in 1 groups")
}

func TestExportImport(t *testing.T) {
	cleanEnv(t)
	src, dst := t.TempDir(), t.TempDir()
	mustRun(t, src, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S1", "--cost", "50")
	mustRun(t, src, "add", "--name", "Laptop", "--brand", "Dell", "--model", "X1", "--serial", "S2")

	book := filepath.Join(t.TempDir(), "inventory.xlsx")
	out := mustRun(t, src, "export", book)
	assert.Contains(t, out, "Exported 2 items")

	out = mustRun(t, dst, "import", book, "--dry-run")
	assert.Contains(t, out, "Inserted: 2")
	assert.Contains(t, out, "dry run: true")
	assert.Contains(t, mustRun(t, dst, "list"), "No hardware found.")

	out = mustRun(t, dst, "import", book)
	assert.Contains(t, out, "Inserted: 2")
	assert.Contains(t, mustRun(t, dst, "list"), "2 items in 1 groups, 100.00/month")

	out = mustRun(t, dst, "import", book)
	assert.Contains(t, out, "Updated: 2")
}
