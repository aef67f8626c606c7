package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jfpatrick/bipy-gui-manager/internal/deploy"
	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
	"github.com/jfpatrick/bipy-gui-manager/internal/scaffold"
)

const (
	appName          = "bipy-gui-manager"
	interruptMessage = "Exiting on user's request."
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Create, deploy and run BI PyQt applications",
	Long: `bipy-gui-manager helps BI developers manage their PyQt applications.
It creates new projects from the BI template, uploads them to GitLab,
deploys and releases finished projects to the shared GUI folders,
and launches the applications deployed there.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	handleInterrupt()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, prompt.ErrInterrupted) {
			fmt.Fprintln(os.Stderr, interruptMessage)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handleInterrupt exits quietly on Ctrl+C. Prompts in raw terminal mode
// report it as prompt.ErrInterrupted instead.
func handleInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		fmt.Fprintln(os.Stderr, "\n"+interruptMessage)
		os.Exit(0)
	}()
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/bipy-gui-manager/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BIPY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the value of every key when nothing overrides it.
func setDefaults() {
	settings := scaffold.DefaultSettings()
	paths := deploy.DefaultPaths()

	viper.SetDefault("git.path", "/usr/bin/git")
	viper.SetDefault("shell.path", "/bin/bash")
	viper.SetDefault("phonebook.command", "phonebook")

	viper.SetDefault("gitlab.url", "https://gitlab.cern.ch")
	viper.SetDefault("gitlab.group", settings.GitLabGroup)
	viper.SetDefault("gitlab.group_id", settings.GitLabGroupID)
	viper.SetDefault("gitlab.docs_user_id", settings.DocsUserID)

	viper.SetDefault("template.name", settings.TemplateName)
	viper.SetDefault("template.author", settings.TemplateAuthor)
	viper.SetDefault("template.email", settings.TemplateEmail)

	viper.SetDefault("deploy.operational_path", paths.Operational)
	viper.SetDefault("deploy.development_path", paths.Development)
	viper.SetDefault("deploy.acc_py_path", paths.AccPy)
	viper.SetDefault("deploy.branches", []string{"master", "main"})
	viper.SetDefault("release.folder", paths.ReleaseFolder)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
