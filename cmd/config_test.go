package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
// It returns the config dir and the buffer collecting all output.
func testEnv(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	setDefaults()

	buf := &bytes.Buffer{}
	ui = &output.UI{Out: buf, ErrOut: buf}

	return dir, buf
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir, _ := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bipy-gui-manager configuration")
	assert.Contains(t, string(data), "sy-bi-pyqt-template")
}

func TestConfigInit_IsValidYAML(t *testing.T) {
	dir, _ := testEnv(t)
	require.NoError(t, configInitRun())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	var parsed struct {
		GitLab struct {
			URL        string `yaml:"url"`
			Group      string `yaml:"group"`
			DocsUserID int    `yaml:"docs_user_id"`
		} `yaml:"gitlab"`
		Deploy struct {
			Branches []string `yaml:"branches"`
		} `yaml:"deploy"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "https://gitlab.cern.ch", parsed.GitLab.URL)
	assert.Equal(t, "bisw-python", parsed.GitLab.Group)
	assert.Equal(t, 19185, parsed.GitLab.DocsUserID)
	assert.Equal(t, []string{"master", "main"}, parsed.Deploy.Branches)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bipy-gui-manager configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	_, buf := testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "(none)")
	assert.Contains(t, buf.String(), "gitlab.docs_user_id")
	assert.Contains(t, buf.String(), "(default)")
}

func TestConfigShow_WithFile(t *testing.T) {
	_, buf := testEnv(t)

	// Create config first
	require.NoError(t, configInitRun())
	buf.Reset()

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "(file)")
}

func TestConfigShow_Env(t *testing.T) {
	_, buf := testEnv(t)
	t.Setenv("BIPY_GITLAB_GROUP", "my-group")

	require.NoError(t, configShowRun())
	assert.Contains(t, buf.String(), "(env: BIPY_GITLAB_GROUP)")
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "echo") // harmless command

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	// From env
	t.Setenv("BIPY_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "BIPY_TEST_KEY", fileValues), "env")

	// From file
	assert.Contains(t, detectSource("key_a", "BIPY_KEY_A_NONEXISTENT", fileValues), "file")

	// Default
	assert.Contains(t, detectSource("key_b", "BIPY_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}

func TestConfigInit_DryRun(t *testing.T) {
	dir, _ := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	err := configInitRun()
	require.NoError(t, err)

	// File should NOT have been created
	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err), "config file should not exist in dry-run mode")
}
