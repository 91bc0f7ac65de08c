package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Rate     float64 `json:"rate"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config/f95.local.json5", LocalPath("config/f95.json5"))
	require.Equal(t, "f95.local", LocalPath("f95"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "f95.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, name, `{
		// comments are allowed
		username: "someone",
		password: "hunter2",
	}`)
	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "someone", Password: "hunter2"}, cfg)

	writeFile(t, LocalPath(name), `{password: "local"}`)
	cfg, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "someone", Password: "local"}, cfg)
}

func TestReadConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "f95.json5")
	defaults := testConfig{Username: "default", Rate: 2}

	cfg, err := ReadConfigWithDefaults(name, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	writeFile(t, name, `{username: "someone"}`)
	cfg, err = ReadConfigWithDefaults(name, defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "someone", Rate: 2}, cfg)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "f95.json5")
	writeFile(t, name, `{username: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}
