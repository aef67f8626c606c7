package cmd

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jfpatrick/bipy-gui-manager/internal/deploy"
	"github.com/jfpatrick/bipy-gui-manager/internal/git"
	"github.com/jfpatrick/bipy-gui-manager/internal/gitlab"
	"github.com/jfpatrick/bipy-gui-manager/internal/phonebook"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
	"github.com/jfpatrick/bipy-gui-manager/internal/scaffold"
)

// BIPY_GITLAB_URL overrides gitlab.url.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Replaceable in tests.
var (
	newRunner = func() proc.Runner { return proc.NewRunner() }
	newAsker  = func() prompt.Asker { return prompt.NewAsker(os.Stdin, os.Stdout) }
)

func newSession(interactive bool) *prompt.Session {
	return &prompt.Session{Asker: newAsker(), UI: ui, Interactive: interactive}
}

// newGitClient returns a git client. Clone and push ask before retrying when
// the session is interactive.
func newGitClient(runner proc.Runner, s *prompt.Session) *git.Client {
	var retry git.RetryPolicy = git.NoRetry{}
	if s != nil && s.Interactive {
		retry = git.AskRetry{UI: ui, Asker: s.Asker}
	}
	return git.NewClient(git.NewInvoker(runner, viper.GetString("git.path"), ui), retry)
}

func newGitLabClient() *gitlab.Client {
	return gitlab.NewClient(viper.GetString("gitlab.url"), ui)
}

func newDirectory(runner proc.Runner) *phonebook.Directory {
	return phonebook.NewDirectory(runner, viper.GetString("phonebook.command"))
}

func scaffoldSettings() scaffold.Settings {
	return scaffold.Settings{
		GitLabGroup:    viper.GetString("gitlab.group"),
		GitLabGroupID:  viper.GetInt("gitlab.group_id"),
		DocsUserID:     viper.GetInt("gitlab.docs_user_id"),
		TemplateName:   viper.GetString("template.name"),
		TemplateAuthor: viper.GetString("template.author"),
		TemplateEmail:  viper.GetString("template.email"),
	}
}

func deployPaths() deploy.Paths {
	return deploy.Paths{
		Operational:   viper.GetString("deploy.operational_path"),
		Development:   viper.GetString("deploy.development_path"),
		AccPy:         viper.GetString("deploy.acc_py_path"),
		ReleaseFolder: viper.GetString("release.folder"),
	}
}

func newDeployer(runner proc.Runner) *deploy.Deployer {
	return &deploy.Deployer{
		UI:      ui,
		Runner:  runner,
		Shell:   viper.GetString("shell.path"),
		Checker: deploy.NewChecker(newGitClient(runner, nil), viper.GetStringSlice("deploy.branches")),
		Paths:   deployPaths(),
	}
}
