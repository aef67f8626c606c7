package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
	assert.Empty(t, out.String())
}

func TestHint(t *testing.T) {
	u, out, _ := newTestUI()
	u.Hint("run %s", "pip install -e .")
	assert.Contains(t, out.String(), "=>")
	assert.Contains(t, out.String(), "run pip install -e .")
}

func TestSubtask(t *testing.T) {
	u, out, _ := newTestUI()
	u.Subtask("Cloning template")
	assert.Equal(t, "  - Cloning template\n", out.String())
}

func TestLine(t *testing.T) {
	u, out, _ := newTestUI()
	u.Line()
	assert.Equal(t, strings.Repeat("-", lineWidth)+"\n", out.String())
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestCheckColor(t *testing.T) {
	assert.Contains(t, CheckColor(true), "ok")
	assert.Contains(t, CheckColor(false), "FAIL")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"App", "Location"})
	require.NotNil(t, table)

	table.Append([]string{"beam-monitor", "operational"})
	table.Append([]string{"bpm-viewer", "development"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.Contains(t, result, "beam-monitor")
	assert.Contains(t, result, "bpm-viewer")
}
