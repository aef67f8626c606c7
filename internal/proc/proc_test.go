package proc

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	c := Command{Name: "git", Args: []string{"status", "--porcelain"}}
	assert.Equal(t, "git status --porcelain", c.String())
	assert.Equal(t, "ls", Command{Name: "ls"}.String())
}

func TestExecRunner_CapturesOutput(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), Command{
		Name: "/bin/sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunner_Passthrough(t *testing.T) {
	var live bytes.Buffer
	r := NewRunner()
	res, err := r.Run(context.Background(), Command{
		Name:   "/bin/sh",
		Args:   []string{"-c", "echo hello"},
		Stdout: &live,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", live.String())
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestExecRunner_Dir(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner()
	res, err := r.Run(context.Background(), Command{Name: "/bin/sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), Command{
		Name: "/bin/sh",
		Args: []string{"-c", "echo broken 1>&2; exit 3"},
	})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "broken")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), Command{Name: "/nonexistent/definitely-not-here"})
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}
