package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfpatrick/bipy-gui-manager/internal/deploy"
)

var (
	deployOperational bool
	deployDevelopment bool
	deployEntryPoint  string
)

var deployCmd = &cobra.Command{
	Use:   "deploy [path]",
	Short: "Deploy a project to the shared GUI folder",
	Long: `Deploy a project to the operational or development GUI folder, where
the AppLauncher can find it.

The project (current directory by default) must be a git repository holding
a Python project, on an allowed branch (deploy.branches), with nothing left to commit or push
and connected to a GitLab remote.

The application is installed under its entry point: --entry-point, the
first console script declared in setup.cfg, or the project folder name.
That is the name to give to 'bipy-gui-manager run'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return newDeployer(newRunner()).Deploy(cmd.Context(), path, deployEntryPoint, deployTarget(deployOperational))
	},
}

func init() {
	deployCmd.Flags().BoolVarP(&deployOperational, "operational", "o", false, "Deploy to the operational folder")
	deployCmd.Flags().BoolVarP(&deployDevelopment, "development", "d", false, "Deploy to the development folder")
	deployCmd.Flags().StringVar(&deployEntryPoint, "entry-point", "", "Name the application is installed and run under")
	deployCmd.MarkFlagsMutuallyExclusive("operational", "development")
	deployCmd.MarkFlagsOneRequired("operational", "development")
	rootCmd.AddCommand(deployCmd)
}

func deployTarget(operational bool) deploy.Target {
	if operational {
		return deploy.Operational
	}
	return deploy.Development
}
