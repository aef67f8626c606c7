package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// InitialCommitMessage is used for the first commit of every new project.
const InitialCommitMessage = "Initial commit (from bipy-gui-manager https://gitlab.cern.ch/bisw-python/bipy_gui_manager)"

// Status is the parsed form of `git status --porcelain --branch`.
type Status struct {
	Branch  string
	Ahead   bool
	Changes int
}

// Clean reports whether nothing is left to commit or push.
func (s Status) Clean() bool {
	return !s.Ahead && s.Changes == 0
}

// ParseStatusPorcelain parses the output of `git status --porcelain --branch`.
func ParseStatusPorcelain(output string) Status {
	var st Status
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header, ok := strings.CutPrefix(line, "## "); ok {
			branch := strings.TrimPrefix(header, "No commits yet on ")
			if i := strings.Index(branch, "..."); i >= 0 {
				branch = branch[:i]
			} else if i := strings.Index(branch, " "); i >= 0 {
				branch = branch[:i]
			}
			st.Branch = branch
			st.Ahead = strings.Contains(header, "[ahead ") || strings.Contains(header, ", ahead ")
			continue
		}
		st.Changes++
	}
	return st
}

// Client wraps the git operations the project commands need.
type Client struct {
	Invoker *Invoker
	// Retry applies to network operations (clone, push). Local commands never retry.
	Retry RetryPolicy
}

// NewClient returns a Client running git through inv.
func NewClient(inv *Invoker, retry RetryPolicy) *Client {
	if retry == nil {
		retry = NoRetry{}
	}
	return &Client{Invoker: inv, Retry: retry}
}

func (c *Client) run(ctx context.Context, dir, message string, args ...string) (string, error) {
	res, err := c.Invoker.Run(ctx, Invocation{Dir: dir, Args: args, Message: message})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// IsRepo reports whether path is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context, path string) bool {
	out, err := c.run(ctx, path, "", "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

func (c *Client) CurrentBranch(ctx context.Context, path string) (string, error) {
	return c.run(ctx, path, "cannot read the current branch", "rev-parse", "--abbrev-ref", "HEAD")
}

// Status returns the working tree status of path.
func (c *Client) Status(ctx context.Context, path string) (Status, error) {
	out, err := c.run(ctx, path, "cannot read the repository status", "status", "--porcelain", "--branch")
	if err != nil {
		return Status{}, err
	}
	return ParseStatusPorcelain(out), nil
}

// IsClean reports whether path has no uncommitted changes and no unpushed commits.
func (c *Client) IsClean(ctx context.Context, path string) (bool, error) {
	st, err := c.Status(ctx, path)
	if err != nil {
		return false, err
	}
	return st.Clean(), nil
}

// RemoteURL returns the URL of origin, or "" when there is none.
func (c *Client) RemoteURL(ctx context.Context, path string) (string, error) {
	out, err := c.run(ctx, path, "", "remote", "get-url", "origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

// Clone clones url into dest. A non-empty branch clones only that branch.
func (c *Client) Clone(ctx context.Context, url, dest, branch string) error {
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--single-branch", "--branch", branch)
	}
	args = append(args, url, dest)

	_, err := c.Invoker.Run(ctx, Invocation{
		Dir:     filepath.Dir(dest),
		Args:    args,
		Message: "Failed to clone the template from " + url,
		Policy:  c.Retry,
	})
	return err
}

// InitLocalRepo creates a repository in path and commits everything in it.
func (c *Client) InitLocalRepo(ctx context.Context, path string) error {
	steps := []struct {
		msg  string
		args []string
	}{
		{"Failed to initialize the local repository", []string{"init"}},
		{"Failed to stage the project files", []string{"add", "--all"}},
		{"Failed to create the first commit", []string{"commit", "-m", InitialCommitMessage}},
	}
	for _, s := range steps {
		if _, err := c.run(ctx, path, s.msg, s.args...); err != nil {
			return err
		}
	}
	return nil
}

// PushFirstCommit adds origin and pushes the current branch to it.
// The remote repository must exist and be empty.
func (c *Client) PushFirstCommit(ctx context.Context, path, url string) error {
	if _, err := c.run(ctx, path, "Failed to add the remote on the project's local repo", "remote", "add", "origin", url); err != nil {
		return err
	}

	_, err := c.Invoker.Run(ctx, Invocation{
		Dir:  path,
		Args: []string{"ls-remote", "origin"},
		Message: fmt.Sprintf("%s does not look like an existing GitLab repository. "+
			"The repository should EXIST and be EMPTY at this stage. "+
			"You can create it yourself and pass its address with the --repo flag", url),
		Policy: c.Retry,
	})
	if err != nil {
		return err
	}

	_, err = c.Invoker.Run(ctx, Invocation{
		Dir:     path,
		Args:    []string{"push", "-u", "origin", "HEAD"},
		Message: "Failed to push the first commit to GitLab",
		Policy:  c.Retry,
	})
	return err
}
