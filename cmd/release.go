package cmd

import (
	"github.com/spf13/cobra"
)

var releaseEntryPoint string

var releaseCmd = &cobra.Command{
	Use:   "release [path]",
	Short: "Release a project through the appinstaller",
	Long: `Release a project by running the appinstaller of the release folder
(release.folder in the configuration) with the project's entry point
and GitLab remote.

The entry point is taken from --entry-point, from the first console
script declared in setup.cfg, or from the project folder name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return newDeployer(newRunner()).Release(cmd.Context(), path, releaseEntryPoint)
	},
}

func init() {
	releaseCmd.Flags().StringVar(&releaseEntryPoint, "entry-point", "", "Name of the application's entry point")
	rootCmd.AddCommand(releaseCmd)
}
