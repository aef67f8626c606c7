package gitlab

import (
	"fmt"
	"regexp"
	"strings"
)

// Host is the GitLab instance every project lives on.
const Host = "gitlab.cern.ch"

// NoGitLab is the repository answer that keeps the project local.
const NoGitLab = "no-gitlab"

// Protocol selects how git talks to GitLab.
type Protocol string

const (
	Kerberos Protocol = "kerberos"
	SSH      Protocol = "ssh"
	HTTPS    Protocol = "https"
)

// Protocols lists the accepted protocol names, in flag-help order.
var Protocols = []Protocol{Kerberos, SSH, HTTPS}

// ParseProtocol validates a protocol name.
func ParseProtocol(s string) (Protocol, error) {
	for _, p := range Protocols {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("protocol not recognized: %q (expected kerberos, ssh or https)", s)
}

// RepoURL builds the address of group/name in the form p expects.
func (p Protocol) RepoURL(group, name string) string {
	switch p {
	case SSH:
		return fmt.Sprintf("ssh://git@%s:7999/%s/%s.git", Host, group, name)
	case HTTPS:
		return fmt.Sprintf("https://%s/%s/%s.git", Host, group, name)
	default:
		return fmt.Sprintf("https://:@%s:8443/%s/%s.git", Host, group, name)
	}
}

// Repository is the resolved remote of a new project.
type Repository struct {
	URL      string
	Protocol Protocol
	// Create is true when the remote does not exist yet and must be created
	// through the API before pushing.
	Create bool
}

// Enabled reports whether the project has a remote at all.
func (r Repository) Enabled() bool { return r.URL != "" }

// Namespace returns the group (or user) part of the repository path.
func (r Repository) Namespace() string {
	_, rest, ok := strings.Cut(r.URL, Host)
	if !ok {
		return ""
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

const repoPath = `/[a-zA-Z0-9_%-]+/[a-zA-Z0-9_%/-]+\.git$`

var explicitRepo = map[Protocol]*regexp.Regexp{
	SSH:      regexp.MustCompile(`^ssh://git@gitlab\.cern\.ch:7999` + repoPath),
	HTTPS:    regexp.MustCompile(`^https://gitlab\.cern\.ch` + repoPath),
	Kerberos: regexp.MustCompile(`^https://:@gitlab\.cern\.ch:8443` + repoPath),
}

// ResolveRepository turns a user answer into a Repository.
//
//   - an explicit GitLab URL is used as is and must already exist
//   - "" or "default" resolves to group/name.git over the upload protocol
//   - "no-gitlab" disables the remote
func ResolveRepository(answer string, upload Protocol, group, name string) (Repository, error) {
	answer = strings.TrimSpace(answer)
	switch answer {
	case NoGitLab:
		return Repository{}, nil
	case "", "default":
		return Repository{URL: upload.RepoURL(group, name), Protocol: upload, Create: true}, nil
	}
	for _, p := range Protocols {
		if explicitRepo[p].MatchString(answer) {
			return Repository{URL: answer, Protocol: p}, nil
		}
	}
	return Repository{}, fmt.Errorf("invalid GitLab repository URL: %q", answer)
}
