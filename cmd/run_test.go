package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunListRun(t *testing.T) {
	_, buf := testEnv(t)
	ops, dev := t.TempDir(), t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(ops, "beam-viewer"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dev, "orbit-monitor"), 0o755))
	viper.Set("deploy.operational_path", ops)
	viper.Set("deploy.development_path", dev)

	require.NoError(t, runListRun())

	out := buf.String()
	assert.Contains(t, out, "beam-viewer")
	assert.Contains(t, out, "orbit-monitor")
}

func TestRunListRun_Empty(t *testing.T) {
	_, buf := testEnv(t)
	viper.Set("deploy.operational_path", t.TempDir())
	viper.Set("deploy.development_path", t.TempDir())

	require.NoError(t, runListRun())
	assert.Contains(t, buf.String(), "No deployed applications found.")
}

func TestDeployCmd_Flags(t *testing.T) {
	assert.Equal(t, "o", deployCmd.Flags().Lookup("operational").Shorthand)
	assert.Equal(t, "d", deployCmd.Flags().Lookup("development").Shorthand)
	assert.NotNil(t, deployCmd.Flags().Lookup("entry-point"))
}

func TestRunCmd_Flags(t *testing.T) {
	assert.Equal(t, "o", runCmd.Flags().Lookup("operational").Shorthand)
	assert.Equal(t, "d", runCmd.Flags().Lookup("development").Shorthand)
	assert.Equal(t, "l", runCmd.Flags().Lookup("list").Shorthand)
}

func TestRunCmd_TargetFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"operational", []string{"-o"}, false},
		{"development", []string{"-d"}, false},
		{"list alone", []string{"--list"}, false},
		{"no target", nil, true},
		{"both targets", []string{"-o", "-d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() {
				for _, name := range []string{"operational", "development", "list"} {
					f := runCmd.Flags().Lookup(name)
					_ = f.Value.Set("false")
					f.Changed = false
				}
			})
			require.NoError(t, runCmd.ParseFlags(tt.args))

			err := runCmd.ValidateFlagGroups()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
