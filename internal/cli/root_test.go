package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persist "github.com/goliatone/go-persistfile"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "persistfile", cmd.Use)
	assert.Contains(t, cmd.Long, "--config")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"paths", "show", "restore", "save"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	driverFlag := cmd.PersistentFlags().Lookup("driver")
	require.NotNil(t, driverFlag)
	assert.Equal(t, DriverFile, driverFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	for _, name := range []string{"config", "dir", "file", "dsn", "create-dirs"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestSaveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	saveCmd, _, err := cmd.Find([]string{"save"})
	require.NoError(t, err)

	operation := saveCmd.Flags().Lookup("operation")
	require.NotNil(t, operation)
	assert.Equal(t, DefaultSaveOperation, operation.DefValue)
	require.NotNil(t, saveCmd.Flags().Lookup("state"))
}

func TestInvalidDriver(t *testing.T) {
	_, _, err := execute(t, "paths", "--dir", t.TempDir(), "--driver", "s3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid driver")
}

func TestSQLiteRequiresDSN(t *testing.T) {
	_, _, err := execute(t, "paths", "--dir", t.TempDir(), "--driver", DriverSQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dsn")
}

func TestMissingStorageLocation(t *testing.T) {
	_, _, err := execute(t, "paths")
	require.Error(t, err)
	assert.True(t, errors.Is(err, persist.ErrInvalidConfiguration))
}

func TestPathsListsBackups(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "persist.yaml", "storage_location: "+dir+"\nfile_name: app.json\ndaily_backup: true\nhourly_backup: true\n")

	stdout, _, err := execute(t, "paths", "--config", config, "--at", "2024-03-05T14:37:00Z")
	require.NoError(t, err)
	assert.Contains(t, stdout, "primary: "+filepath.Join(dir, "app.json"))
	assert.Contains(t, stdout, "backup:  "+filepath.Join(dir, "20240305-app.json"))
	assert.Contains(t, stdout, "backup:  "+filepath.Join(dir, "2024030514"+"00-app.json"))
}

func TestSaveThenShow(t *testing.T) {
	dir := t.TempDir()
	state := writeFile(t, dir, "state.json", `{"b":2,"a":{"x":true}}`)

	stdout, _, err := execute(t, "save", "--dir", dir, "--state", state)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+filepath.Join(dir, persist.DefaultFileName))

	raw, err := os.ReadFile(filepath.Join(dir, persist.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":true},"b":2}`, string(raw))

	stdout, _, err = execute(t, "show", "--dir", dir)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"x":true},"b":2}`, stdout)
}

func TestSaveHonoursAllowList(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "persist.toml", "storage_location = \""+dir+"\"\nallowed_operations = [\"updateA\"]\n")
	state := writeFile(t, dir, "state.json", `{"a":1}`)

	stdout, _, err := execute(t, "save", "--config", config, "--state", state, "--operation", "updateB")
	require.NoError(t, err)
	assert.Contains(t, stdout, "skipped")
	_, statErr := os.Stat(filepath.Join(dir, persist.DefaultFileName))
	assert.True(t, os.IsNotExist(statErr))

	stdout, _, err = execute(t, "save", "--config", config, "--state", state, "--operation", "updateA")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote")
}

func TestSaveCreatesDirectoriesWhenAsked(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "nested", "state")
	state := writeFile(t, root, "state.json", `{"a":1}`)

	_, _, err := execute(t, "save", "--dir", dir, "--state", state)
	require.Error(t, err)

	_, _, err = execute(t, "save", "--dir", dir, "--state", state, "--create-dirs")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, persist.DefaultFileName))
}

func TestShowMissingSnapshot(t *testing.T) {
	_, _, err := execute(t, "show", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot")
}

func TestShowMalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, persist.DefaultFileName, "{ a }")

	_, _, err := execute(t, "show", "--dir", dir)
	var decodeErr *persist.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestRestoreMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, persist.DefaultFileName, `{"a":1,"b":2}`)
	defaults := writeFile(t, dir, "defaults.json", `{"b":5,"c":3}`)

	stdout, _, err := execute(t, "restore", "--dir", dir, "--defaults", defaults)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":2,"c":3}`, stdout)
}

func TestRestoreWithoutSnapshotPrintsDefaults(t *testing.T) {
	dir := t.TempDir()
	defaults := writeFile(t, dir, "defaults.json", `{"c":3}`)

	stdout, _, err := execute(t, "restore", "--dir", dir, "--defaults", defaults)
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":3}`, stdout)
}

func TestSQLiteDriverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "snapshots.db")
	state := writeFile(t, dir, "state.json", `{"a":1}`)

	_, _, err := execute(t, "save", "--driver", DriverSQLite, "--dsn", dsn, "--dir", "/app", "--state", state)
	require.NoError(t, err)

	stdout, _, err := execute(t, "show", "--driver", DriverSQLite, "--dsn", dsn, "--dir", "/app")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, stdout)
}

func TestVerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	state := writeFile(t, dir, "state.json", `{"a":1}`)

	_, stderr, err := execute(t, "save", "--dir", dir, "--state", state, "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "state saved")
}
