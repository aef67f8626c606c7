package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfpatrick/bipy-gui-manager/internal/deploy"
	"github.com/jfpatrick/bipy-gui-manager/internal/output"
)

var (
	runOperational bool
	runDevelopment bool
	runList        bool
)

var runCmd = &cobra.Command{
	Use:   "run [app]",
	Short: "Launch a deployed application",
	Long: `Launch an application previously deployed with 'bipy-gui-manager deploy'.

Applications are looked up in the operational folder (--operational) or
in the development folder (--development). Use --list to see what is
deployed in both.`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return deploy.AppNames(deployPaths()), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if runList {
			return runListRun()
		}
		app := ""
		if len(args) > 0 {
			app = args[0]
		}
		return newDeployer(newRunner()).Run(cmd.Context(), app, deployTarget(runOperational))
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runOperational, "operational", "o", false, "Run the operational version of the application")
	runCmd.Flags().BoolVarP(&runDevelopment, "development", "d", false, "Run the development version of the application")
	runCmd.Flags().BoolVarP(&runList, "list", "l", false, "List the deployed applications")
	runCmd.MarkFlagsMutuallyExclusive("operational", "development")
	runCmd.MarkFlagsOneRequired("operational", "development", "list")
	rootCmd.AddCommand(runCmd)
}

func runListRun() error {
	apps := deploy.ListApps(deployPaths())
	if len(apps) == 0 {
		ui.Info("No deployed applications found.")
		return nil
	}

	table := ui.Table([]string{"NAME", "FOLDER", "LOCATION"})
	for _, a := range apps {
		_ = table.Append([]string{output.Cyan(a.Name), a.Target.String(), a.Location})
	}
	return table.Render()
}
