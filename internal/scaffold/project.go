// Package scaffold creates new PyQt projects from the template repository.
package scaffold

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jfpatrick/bipy-gui-manager/internal/gitlab"
)

// Options holds the raw values given on the command line. Empty strings mean
// "not given".
type Options struct {
	BasePath    string
	Name        string
	Description string
	Author      string
	Email       string
	CERNID      string

	Repo           string
	NoGitLab       bool
	CloneProtocol  string
	UploadProtocol string
	GitLabToken    string

	WithDemo bool
	NoDemo   bool

	Interactive      bool
	CleanupOnFailure bool
	Overwrite        bool
	Crash            bool

	TemplatePath string
	TemplateURL  string
}

// Settings are the site-wide values that come from configuration.
type Settings struct {
	GitLabGroup    string
	GitLabGroupID  int
	DocsUserID     int
	TemplateName   string
	TemplateAuthor string
	TemplateEmail  string
}

// CreatesInGroup reports whether new repositories are created in
// GitLabGroup. Without a group id the API puts them in the personal
// namespace of the authenticated user.
func (s Settings) CreatesInGroup() bool {
	return s.GitLabGroupID != 0
}

func (s Settings) namespaceLabel() string {
	if s.CreatesInGroup() {
		return "'" + s.GitLabGroup + "'"
	}
	return "your personal namespace"
}

// DefaultSettings returns the values used when no configuration overrides them.
func DefaultSettings() Settings {
	return Settings{
		GitLabGroup:    "bisw-python",
		DocsUserID:     19185,
		TemplateName:   "sy-bi-pyqt-template",
		TemplateAuthor: "Sara Zanzottera",
		TemplateEmail:  "sara.zanzottera@cern.ch",
	}
}

// TemplateSource says where the template comes from. Exactly one of Path and
// URL is set.
type TemplateSource struct {
	Path   string
	URL    string
	Branch string
}

// Project is the validated description of the project to create. It is built
// once by Collect and never modified afterwards.
type Project struct {
	Name        string
	Description string
	Author      string
	Email       string
	AuthorID    string

	BasePath string
	// ReplaceExisting allows deleting a folder already sitting at Path().
	ReplaceExisting bool

	Demo     bool
	Repo     gitlab.Repository
	Token    gitlab.Token
	Template TemplateSource
}

// Path is the project root directory.
func (p Project) Path() string {
	return filepath.Join(p.BasePath, p.Name)
}

// PackageName is the Python package name.
func (p Project) PackageName() string {
	return Underscored(p.Name)
}

// DisplayName is the human readable project name.
func (p Project) DisplayName() string {
	return TitleCase(p.Name)
}

// Underscored turns a dashed name into a Python identifier.
func Underscored(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// TitleCase turns "beam-loss-monitor" into "Beam Loss Monitor". A letter is
// upper-cased when it does not follow another letter, so "my-2d-viewer"
// becomes "My 2D Viewer".
func TitleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "-", " "))
	for i, w := range words {
		var b strings.Builder
		afterLetter := false
		for _, r := range w {
			if afterLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			afterLetter = unicode.IsLetter(r)
		}
		words[i] = b.String()
	}
	return strings.Join(words, " ")
}
