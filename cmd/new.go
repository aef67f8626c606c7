package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jfpatrick/bipy-gui-manager/internal/gitlab"
	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
	"github.com/jfpatrick/bipy-gui-manager/internal/scaffold"
)

var newOpts scaffold.Options

// notInteractive is the inverse of newOpts.Interactive, as exposed on the CLI.
var notInteractive bool

var newCmd = &cobra.Command{
	Use:     "new",
	Aliases: []string{"create-project"},
	Short:   "Create a new PyQt project from the BI template",
	Long: `Create a new PyQt project from the BI template.

Every value not given as a flag is asked interactively, unless
--not-interactive is set, in which case missing or invalid values
are an error. The project is cloned from the template, customized,
committed, optionally uploaded to GitLab and installed in its own
virtual environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		newOpts.Interactive = !notInteractive
		return newRun(cmd.Context(), newOpts)
	},
}

func init() {
	f := newCmd.Flags()
	f.StringVar(&newOpts.BasePath, "path", "", "Where to create the project (default: ask, or the current directory)")
	f.StringVar(&newOpts.Name, "name", "", "Project name (lowercase letters, numbers and dashes)")
	f.StringVar(&newOpts.Description, "desc", "", "One-line project description")
	f.StringVar(&newOpts.Author, "author", "", "Author's full name")
	f.StringVar(&newOpts.Email, "email", "", "Author's CERN email")
	f.StringVar(&newOpts.CERNID, "cern-id", "", "CERN username, used to look up name and email in the phonebook")

	f.StringVar(&newOpts.Repo, "repo", "", "Existing empty GitLab repository, 'default' to create one, or 'no-gitlab'")
	f.BoolVar(&newOpts.NoGitLab, "no-gitlab", false, "Keep the project local")
	f.StringVar(&newOpts.CloneProtocol, "clone-protocol", string(gitlab.Kerberos), "Protocol used to clone the template: "+protocolList())
	f.StringVar(&newOpts.UploadProtocol, "upload-protocol", "", "Protocol used to push the project (default: the clone protocol)")
	f.StringVar(&newOpts.GitLabToken, "gitlab-auth-token", "", "GitLab personal access token, used instead of asking for a password")

	f.BoolVar(&newOpts.WithDemo, "with-demo", false, "Include the demo application")
	f.BoolVar(&newOpts.NoDemo, "no-demo", false, "Do not include the demo application")

	f.BoolVar(&notInteractive, "not-interactive", false, "Never ask anything: fail on missing or invalid values")
	f.BoolVar(&newOpts.CleanupOnFailure, "cleanup-on-failure", false, "Delete the project folder if creation fails, without asking")
	f.BoolVar(&newOpts.Overwrite, "overwrite-project", false, "Replace an existing folder with the same name")
	f.StringVar(&newOpts.TemplatePath, "template-path", "", "Copy the template from a local folder")
	f.StringVar(&newOpts.TemplateURL, "template-url", "", "Clone the template from this URL")
	f.BoolVar(&newOpts.Crash, "crash", false, "Return the raw error without cleaning up (debugging)")
	_ = f.MarkHidden("crash")

	newCmd.MarkFlagsMutuallyExclusive("repo", "no-gitlab")
	newCmd.MarkFlagsMutuallyExclusive("with-demo", "no-demo")
	newCmd.MarkFlagsMutuallyExclusive("template-path", "template-url")

	rootCmd.AddCommand(newCmd)
}

func protocolList() string {
	names := make([]string, len(gitlab.Protocols))
	for i, p := range gitlab.Protocols {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func newRun(ctx context.Context, opts scaffold.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runner := newRunner()
	session := newSession(opts.Interactive)
	gl := newGitLabClient()
	settings := scaffoldSettings()

	fmt.Fprintf(ui.Out, "\n  %s\n\n", output.Cyan("Welcome to "+appName+"!"))
	fmt.Fprintln(ui.Out, "  Setup:")
	fmt.Fprintln(ui.Out)

	collector := &scaffold.Collector{
		Session:   session,
		Directory: newDirectory(runner),
		GitLab:    gl,
		Settings:  settings,
	}
	project, err := collector.Collect(ctx, opts)
	if err != nil {
		return newFailed(session, "", opts, err)
	}

	ui.Line()
	if dryRun {
		ui.DryRunMsg("Would create %s under %s", project.Name, project.Path())
		if project.Repo.Create {
			ui.DryRunMsg("Would create the GitLab repository %s", project.Repo.URL)
		}
		if project.Repo.Enabled() {
			ui.DryRunMsg("Would push the first commit to %s", project.Repo.URL)
		}
		return nil
	}

	fmt.Fprintln(ui.Out, "  Installation:")
	fmt.Fprintln(ui.Out)
	s := &scaffold.Scaffolder{
		UI:       ui,
		Git:      newGitClient(runner, session),
		GitLab:   gl,
		Runner:   runner,
		Shell:    viper.GetString("shell.path"),
		Settings: settings,
	}
	if err := s.Create(ctx, project); err != nil {
		return newFailed(session, project.Path(), opts, err)
	}
	scaffold.WhatNow(ui, project)
	return nil
}

// newFailed reports a creation failure and offers to remove what was created.
func newFailed(session *prompt.Session, path string, opts scaffold.Options, err error) error {
	if errors.Is(err, prompt.ErrInterrupted) {
		return err
	}
	ui.Error("A fatal error occurred: %v", err)
	if opts.Crash || errors.Is(err, scaffold.ErrTargetExists) {
		return err
	}
	if cerr := scaffold.Cleanup(session, path, opts.CleanupOnFailure); cerr != nil {
		ui.Warning("Cleanup failed: %v", cerr)
	}
	return err
}
