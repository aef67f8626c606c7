package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc/proctest"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
	"github.com/jfpatrick/bipy-gui-manager/internal/scaffold"
)

// noAsker fails every question; commands under test must not prompt.
type noAsker struct{}

func (noAsker) Ask(string) (string, error)         { return "", prompt.ErrNoInput }
func (noAsker) Password(string) (string, error)    { return "", prompt.ErrNoInput }
func (noAsker) Confirm(string, bool) (bool, error) { return false, prompt.ErrNoInput }

// fakeProcesses swaps the process runner and the asker for the test.
func fakeProcesses(t *testing.T, handle proctest.HandlerFunc) *proctest.Runner {
	t.Helper()
	runner := &proctest.Runner{Handle: handle}
	origRunner, origAsker := newRunner, newAsker
	newRunner = func() proc.Runner { return runner }
	newAsker = func() prompt.Asker { return noAsker{} }
	t.Cleanup(func() { newRunner, newAsker = origRunner, origAsker })
	return runner
}

func writeMiniTemplate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"setup.py":                        `setup(name="sy-bi-pyqt-template", author="Sara Zanzottera")` + "\n",
		"README-template.md":              "# Project Name\n\n_Here goes the project description_\n",
		"sy_bi_pyqt_template/__init__.py": "",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestOptions(t *testing.T) scaffold.Options {
	return scaffold.Options{
		BasePath:     t.TempDir(),
		Name:         "beam-viewer",
		Description:  "Shows the beam",
		Author:       "Jane Doe",
		Email:        "jane.doe@cern.ch",
		NoGitLab:     true,
		WithDemo:     true,
		TemplatePath: writeMiniTemplate(t),
	}
}

func TestNewRun_NotInteractive(t *testing.T) {
	_, buf := testEnv(t)
	runner := fakeProcesses(t, nil)
	opts := newTestOptions(t)

	require.NoError(t, newRun(context.Background(), opts))

	root := filepath.Join(opts.BasePath, "beam-viewer")
	assert.DirExists(t, filepath.Join(root, "beam_viewer"))
	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Beam Viewer\n\nShows the beam\n", string(data))

	assert.True(t, runner.Called("init"))
	assert.False(t, runner.Called("push"))
	assert.Contains(t, buf.String(), "What now?")
}

func TestNewRun_InvalidName(t *testing.T) {
	testEnv(t)
	runner := fakeProcesses(t, nil)
	opts := newTestOptions(t)
	opts.Name = "Test_Project"

	err := newRun(context.Background(), opts)
	var verr *prompt.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, runner.Calls)
}

func TestNewRun_DryRun(t *testing.T) {
	_, buf := testEnv(t)
	runner := fakeProcesses(t, nil)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })
	opts := newTestOptions(t)

	require.NoError(t, newRun(context.Background(), opts))
	assert.Empty(t, runner.Calls)
	assert.NoDirExists(t, filepath.Join(opts.BasePath, "beam-viewer"))
	assert.Contains(t, buf.String(), "[DRY-RUN]")
}

func TestNewRun_InstallFailureCleansUp(t *testing.T) {
	_, buf := testEnv(t)
	fakeProcesses(t, func(cmd proc.Command) (proc.Result, error) {
		if cmd.Name == "/bin/bash" {
			return proctest.Fail(cmd, 2, "")
		}
		return proc.Result{}, nil
	})
	opts := newTestOptions(t)
	opts.CleanupOnFailure = true

	err := newRun(context.Background(), opts)
	var ierr *scaffold.InstallError
	require.ErrorAs(t, err, &ierr)
	assert.NoDirExists(t, filepath.Join(opts.BasePath, "beam-viewer"))
	assert.Contains(t, buf.String(), "A fatal error occurred")
	assert.Contains(t, buf.String(), "Cleaning up...")
}

func TestNewRun_FailureKeepsFilesWithoutCleanup(t *testing.T) {
	testEnv(t)
	fakeProcesses(t, func(cmd proc.Command) (proc.Result, error) {
		if cmd.Name == "/bin/bash" {
			return proctest.Fail(cmd, 2, "")
		}
		return proc.Result{}, nil
	})
	opts := newTestOptions(t)

	require.Error(t, newRun(context.Background(), opts))
	assert.DirExists(t, filepath.Join(opts.BasePath, "beam-viewer"))
}

func TestNewCmd_Flags(t *testing.T) {
	assert.Equal(t, []string{"create-project"}, newCmd.Aliases)
	for _, name := range []string{
		"path", "name", "desc", "author", "email", "cern-id", "repo", "no-gitlab",
		"clone-protocol", "upload-protocol", "gitlab-auth-token", "with-demo", "no-demo",
		"not-interactive", "cleanup-on-failure", "overwrite-project", "template-path", "template-url", "crash",
	} {
		assert.NotNil(t, newCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "kerberos", newCmd.Flags().Lookup("clone-protocol").DefValue)
}
