package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const setupCfg = `[metadata]
name = beam-viewer
description = Shows the beam

[options]
packages = find:
install_requires =
    comrad
    pyqtgraph

[options.entry_points]
console_scripts =
    beam-viewer = beam_viewer.main:main
    beam-viewer-expert = beam_viewer.expert:main  # secondary
gui_scripts =
    ignored = beam_viewer.gui:main
`

func TestConsoleScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), []byte(setupCfg), 0o644))

	names, err := ConsoleScripts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"beam-viewer", "beam-viewer-expert"}, names)

	ep, err := EntryPoint(dir)
	require.NoError(t, err)
	assert.Equal(t, "beam-viewer", ep)
}

func TestEntryPoint_FallsBackToFolderName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orbit-display")
	require.NoError(t, os.Mkdir(dir, 0o755))

	names, err := ConsoleScripts(dir)
	require.NoError(t, err)
	assert.Empty(t, names)

	ep, err := EntryPoint(dir)
	require.NoError(t, err)
	assert.Equal(t, "orbit-display", ep)
}

func TestEntryPoint_NoConsoleScripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orbit-display")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), []byte("[metadata]\nname = x\n"), 0o644))

	ep, err := EntryPoint(dir)
	require.NoError(t, err)
	assert.Equal(t, "orbit-display", ep)
}
