// Package deploy installs finished projects into the shared GUI folders and
// launches the applications found there.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/git"
)

// Check is the outcome of one readiness check.
type Check struct {
	Name   string
	Passed bool
	Detail string
	// Hints tell the user how to fix a failed check.
	Hints []string
}

// Repo is the subset of the git client the checks need.
type Repo interface {
	IsRepo(ctx context.Context, path string) bool
	CurrentBranch(ctx context.Context, path string) (string, error)
	Status(ctx context.Context, path string) (git.Status, error)
	RemoteURL(ctx context.Context, path string) (string, error)
}

// Checker decides whether a project can be deployed.
type Checker struct {
	Git Repo
	// Branches lists the branches a deploy may start from.
	Branches []string
}

// NewChecker returns a Checker allowing the given branches.
func NewChecker(repo Repo, branches []string) *Checker {
	return &Checker{Git: repo, Branches: branches}
}

// Run evaluates every check for the project at path. When path is not a git
// repository or not a Python project the repository checks are skipped.
func (c *Checker) Run(ctx context.Context, path string) []Check {
	checks := []Check{
		c.checkRepo(ctx, path),
		checkPythonProject(path),
	}
	if !Ready(checks) {
		return checks
	}
	return append(checks,
		c.checkBranch(ctx, path),
		c.checkClean(ctx, path),
		c.checkRemote(ctx, path),
	)
}

// Ready reports whether every check passed.
func Ready(checks []Check) bool {
	return !slices.ContainsFunc(checks, func(c Check) bool { return !c.Passed })
}

func (c *Checker) checkRepo(ctx context.Context, path string) Check {
	if c.Git.IsRepo(ctx, path) {
		return Check{Name: "Git repository", Passed: true, Detail: "found"}
	}
	return Check{
		Name:   "Git repository",
		Detail: "You are not in a project that can be deployed. Please cd into your expert GUI's folder and run this command again.",
		Hints: []string{"This command checks for the presence of a Git repository and verifies that it " +
			"contains a Python project. Use `bipy-gui-manager -v` to see more details."},
	}
}

// IsPythonProject reports whether path holds a setup.py or a pyproject.toml.
func IsPythonProject(path string) bool {
	for _, name := range []string{"setup.py", "pyproject.toml"} {
		if info, err := os.Stat(filepath.Join(path, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func checkPythonProject(path string) Check {
	if IsPythonProject(path) {
		return Check{Name: "Python project", Passed: true, Detail: "found"}
	}
	return Check{
		Name:   "Python project",
		Detail: "No setup.py or pyproject.toml found in " + path + ".",
	}
}

func (c *Checker) checkBranch(ctx context.Context, path string) Check {
	branch, err := c.Git.CurrentBranch(ctx, path)
	if err == nil && slices.Contains(c.Branches, branch) {
		return Check{Name: "Branch", Passed: true, Detail: branch}
	}
	want := "master"
	if len(c.Branches) > 0 {
		want = c.Branches[0]
	}
	return Check{
		Name: "Branch",
		Detail: fmt.Sprintf("You are currently not on %s. Please switch to %s with `git checkout %s` and retry.",
			strings.Join(c.Branches, " or "), want, want),
	}
}

func (c *Checker) checkClean(ctx context.Context, path string) Check {
	st, err := c.Git.Status(ctx, path)
	if err == nil && st.Clean() {
		return Check{Name: "Working tree", Passed: true, Detail: "clean"}
	}
	return Check{
		Name: "Working tree",
		Detail: "You have uncommitted and/or unpushed changes in your local directory. " +
			"Please commit and push them, then run this command again.",
		Hints: []string{"Type `git status` to see the changes."},
	}
}

func (c *Checker) checkRemote(ctx context.Context, path string) Check {
	url, _ := c.Git.RemoteURL(ctx, path)
	if url != "" {
		return Check{Name: "Remote", Passed: true, Detail: url}
	}
	return Check{
		Name: "Remote",
		Detail: "This project seems to be not connected to a GitLab repository. " +
			"Please setup a remote for this repository and then run this command again.",
		Hints: []string{
			"You can link this folder to a GitLab repo in this way:",
			"  - Create a new repository on GitLab (on your personal space or bisw-python)",
			"  - Click on the Clone button and copy one of the links",
			"  - In this terminal, execute `git remote add -f origin <the URL you copied>`",
			"  - Execute `git push`.",
		},
	}
}
