package scaffold

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jfpatrick/bipy-gui-manager/internal/gitlab"
	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
)

//go:embed assets/install-project.sh
var installScript []byte

const installScriptName = ".tmp.sh"

// VCS is the subset of the git client the pipeline uses.
type VCS interface {
	Cloner
	InitLocalRepo(ctx context.Context, path string) error
	PushFirstCommit(ctx context.Context, path, url string) error
}

// RepoCreator creates remote repositories.
type RepoCreator interface {
	CreateRepository(ctx context.Context, tok gitlab.Token, opts gitlab.CreateOptions) (gitlab.Project, error)
}

// ErrTargetExists is returned when the project folder already exists and may
// not be replaced. The folder belongs to the user and must survive cleanup.
var ErrTargetExists = errors.New("project folder already exists")

// InstallError reports a provisioning script that exited non-zero.
type InstallError struct {
	Code int
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("New project failed to install: %d.", e.Code)
}

// Scaffolder creates a project on disk from a collected Project.
type Scaffolder struct {
	UI       *output.UI
	Git      VCS
	GitLab   RepoCreator
	Runner   proc.Runner
	Shell    string
	Settings Settings
}

type stage struct {
	name string
	run  func(ctx context.Context, p Project) error
}

func (s *Scaffolder) stages() []stage {
	return []stage{
		{"Preparing the project folder", s.prepareTarget},
		{"Getting the template", s.fetchTemplate},
		{"Applying customizations", func(_ context.Context, p Project) error { return Customize(p, s.Settings) }},
		{"Generating README", func(_ context.Context, p Project) error { return GenerateReadme(p) }},
		{"Setting up version control", s.setupVersionControl},
		{"Installing the project", s.install},
	}
}

// Create runs every stage in order and stops at the first failure. The
// caller decides whether to clean up.
func (s *Scaffolder) Create(ctx context.Context, p Project) error {
	for _, st := range s.stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.UI.Subtask("%s", st.name)
		if err := st.run(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scaffolder) prepareTarget(_ context.Context, p Project) error {
	path := p.Path()
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case !p.ReplaceExisting:
		return fmt.Errorf("%s: %w", path, ErrTargetExists)
	}
	s.UI.VerboseLog("Removing the existing folder %s", path)
	return os.RemoveAll(path)
}

func (s *Scaffolder) fetchTemplate(ctx context.Context, p Project) error {
	if p.Template.Path != "" {
		s.UI.VerboseLog("Copying the template from %s", p.Template.Path)
	} else {
		s.UI.VerboseLog("Cloning the template from %s", p.Template.URL)
	}
	return FetchTemplate(ctx, s.Git, p.Template, p.Path())
}

func (s *Scaffolder) setupVersionControl(ctx context.Context, p Project) error {
	path := p.Path()
	if err := os.RemoveAll(filepath.Join(path, ".git")); err != nil {
		return fmt.Errorf("remove template history: %w", err)
	}
	if err := s.Git.InitLocalRepo(ctx, path); err != nil {
		return err
	}

	if p.Repo.Create {
		s.UI.VerboseLog("Creating the GitLab repository %s", p.Repo.URL)
		_, err := s.GitLab.CreateRepository(ctx, p.Token, gitlab.CreateOptions{
			Path:        p.Name,
			Name:        p.DisplayName(),
			Description: p.Description,
			NamespaceID: s.Settings.GitLabGroupID,
			DocsUserID:  s.Settings.DocsUserID,
		})
		if err != nil {
			return err
		}
	}
	if !p.Repo.Enabled() {
		return nil
	}
	s.UI.VerboseLog("Uploading the project to %s", p.Repo.URL)
	return s.Git.PushFirstCommit(ctx, path, p.Repo.URL)
}

func (s *Scaffolder) install(ctx context.Context, p Project) error {
	script := filepath.Join(p.Path(), installScriptName)
	if err := os.WriteFile(script, installScript, 0o755); err != nil {
		return fmt.Errorf("write install script: %w", err)
	}
	defer func() { _ = os.Remove(script) }()

	_, err := s.Runner.Run(ctx, proc.Command{
		Name:   s.Shell,
		Args:   []string{"-c", "source ./" + installScriptName + " " + strconv.FormatBool(s.UI.Verbose)},
		Dir:    p.Path(),
		Stdout: s.UI.Out,
		Stderr: s.UI.ErrOut,
	})
	var exit *proc.ExitError
	if errors.As(err, &exit) {
		s.UI.Error("New project failed to install: %d.", exit.Code)
		s.UI.Hint("Please execute 'source activate.sh' and 'pip install -e .' in the project's root " +
			"and, if it fails, send the log to the maintainers.")
		return &InstallError{Code: exit.Code}
	}
	return err
}

// Cleanup removes the partially created project. With force it does so
// right away; otherwise it asks, and does nothing when prompting is disabled.
func Cleanup(s *prompt.Session, path string, force bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if !force {
		if !s.Interactive {
			return nil
		}
		ok, err := s.Asker.Confirm(fmt.Sprintf("Do you want to clean up what was created so far? "+
			"This will delete the folder %s.", path), false)
		if err != nil || !ok {
			return err
		}
	}
	s.UI.Error("Cleaning up...")
	return os.RemoveAll(path)
}

// WhatNow prints the guidance shown after a successful creation.
func WhatNow(ui *output.UI, p Project) {
	ui.Line()
	ui.Success("New project '%s' installed successfully.", p.Name)
	ui.Line()

	expected := "a small template application with a plot"
	if !p.Demo {
		expected = "an empty window"
	}
	fmt.Fprintf(ui.Out, `What now?

Your project now lives under '%s'.
To make sure the installation was successful, you should move into that
folder and type the following commands:

   > source activate.sh        (activates acc-py and your virtual env)
   > %s        (launches your PyQt application)

You should see %s. If you don't, or you see an
error of some kind, please report it to us.

Once this is done, you can start working on your new app. If you have already
the virtualenv active in your shell, type from your project's directory:

   > pycharm . &

This will launch PyCharm and make it load the right project directly.
Remember also to activate your virtual env with 'source activate.sh' every time
you start working.

Happy development!
`, p.Path(), p.Name, expected)
	ui.Line()
	ui.Hint("Check the README for typos and complete it with a more in-depth description of your project.")
}
