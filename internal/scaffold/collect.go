package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/gitlab"
	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/phonebook"
	"github.com/jfpatrick/bipy-gui-manager/internal/prompt"
)

var (
	nameRe  = regexp.MustCompile(`^[a-z0-9-]+$`)
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@cern\.ch$`)
)

// NameResolver accepts lowercase letters, numbers and dashes.
var NameResolver = prompt.ResolverFunc[string](func(c string) (string, error) {
	c = strings.TrimSpace(c)
	if !nameRe.MatchString(c) {
		return "", prompt.Invalid("project name", c, "can contain only lowercase letters, numbers and dashes")
	}
	return c, nil
})

// FreeTextResolver accepts any non-empty single-line text without double quotes.
func FreeTextResolver(field string) prompt.Resolver[string] {
	return prompt.ResolverFunc[string](func(c string) (string, error) {
		c = strings.TrimSpace(c)
		switch {
		case c == "":
			return "", prompt.Invalid(field, c, "cannot be empty")
		case strings.Contains(c, `"`):
			return "", prompt.Invalid(field, c, `cannot contain the character "`)
		case strings.ContainsAny(c, "\r\n"):
			return "", prompt.Invalid(field, c, "must fit on one line")
		}
		return c, nil
	})
}

// EmailResolver accepts CERN addresses only.
var EmailResolver = prompt.ResolverFunc[string](func(c string) (string, error) {
	c = strings.TrimSpace(c)
	if !emailRe.MatchString(c) {
		return "", prompt.Invalid("email", c, "must be a valid @cern.ch address")
	}
	return c, nil
})

// Directory resolves CERN logins to personnel records.
type Directory interface {
	Lookup(ctx context.Context, login string) (phonebook.Entry, error)
}

// Authenticator exchanges credentials for a GitLab token and tells who owns it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (gitlab.Token, error)
	Username(ctx context.Context, tok gitlab.Token) (string, error)
}

// Collector turns Options into a Project, asking the user when allowed.
type Collector struct {
	Session   *prompt.Session
	Directory Directory
	GitLab    Authenticator
	Settings  Settings
}

// Collect validates every field in order. The project name comes first so a
// bad name fails before anything touches the network or the filesystem.
func (c *Collector) Collect(ctx context.Context, opts Options) (Project, error) {
	s := c.Session
	ui := s.UI
	var p Project

	var err error
	p.Name, err = prompt.Resolve(s, prompt.Field[string]{
		Name:     "project name",
		Initial:  opts.Name,
		Question: "Please enter your " + output.Yellow("project's name") + ":",
		Resolver: NameResolver,
		Invalid:  "The project name can contain only lowercase letters, numbers and dashes.",
		Accepted: "The project name is set to: %s",
	})
	if err != nil {
		return Project{}, err
	}

	p.Description, err = prompt.Resolve(s, prompt.Field[string]{
		Name:     "project description",
		Initial:  opts.Description,
		Question: "Please enter a " + output.Yellow("one-line description") + " of your project:",
		Resolver: FreeTextResolver("project description"),
		Invalid:  `The project description cannot be empty or contain the character ".`,
		Accepted: "The project description is set to: %s",
	})
	if err != nil {
		return Project{}, err
	}

	author, email := opts.Author, opts.Email
	if opts.CERNID != "" {
		entry, err := c.lookupIdentity(ctx, opts.CERNID)
		if err != nil {
			return Project{}, err
		}
		p.AuthorID = opts.CERNID
		if author == "" {
			author = entry.DisplayName
		}
		if email == "" {
			email = entry.PrimaryEmail()
		}
	}

	p.Author, err = prompt.Resolve(s, prompt.Field[string]{
		Name:     "author",
		Initial:  author,
		Question: "Please enter the " + output.Yellow("author's full name") + ":",
		Resolver: FreeTextResolver("author"),
		Invalid:  `The author name cannot be empty or contain the character ".`,
		Accepted: "The author is set to: %s",
	})
	if err != nil {
		return Project{}, err
	}

	p.Email, err = prompt.Resolve(s, prompt.Field[string]{
		Name:     "email",
		Initial:  email,
		Question: "Please enter the " + output.Yellow("author's CERN email") + ":",
		Resolver: EmailResolver,
		Invalid:  "The email must be a valid CERN address (name.surname@cern.ch).",
		Accepted: "The email is set to: %s",
	})
	if err != nil {
		return Project{}, err
	}

	if err := c.collectBasePath(&p, opts); err != nil {
		return Project{}, err
	}

	if p.Demo, err = c.collectDemo(opts); err != nil {
		return Project{}, err
	}

	clone, err := gitlab.ParseProtocol(defaultString(opts.CloneProtocol, string(gitlab.Kerberos)))
	if err != nil {
		return Project{}, prompt.Invalid("clone protocol", opts.CloneProtocol, err.Error())
	}
	upload, err := gitlab.ParseProtocol(defaultString(opts.UploadProtocol, string(clone)))
	if err != nil {
		return Project{}, prompt.Invalid("upload protocol", opts.UploadProtocol, err.Error())
	}

	if !opts.NoGitLab {
		p.Repo, err = prompt.Resolve(s, prompt.Field[gitlab.Repository]{
			Name:    "GitLab repository",
			Initial: opts.Repo,
			Question: fmt.Sprintf("Press ENTER to create a GitLab repository for your project under %s, "+
				"or enter your existing GitLab repository address here "+
				"(or type '%s' to keep your repository local):", c.Settings.namespaceLabel(), gitlab.NoGitLab),
			Resolver: prompt.ResolverFunc[gitlab.Repository](func(v string) (gitlab.Repository, error) {
				return gitlab.ResolveRepository(v, upload, c.Settings.GitLabGroup, p.Name)
			}),
			Invalid: "Invalid GitLab repository URL.",
			Hints: []string{
				"Accepted forms: ssh://git@gitlab.cern.ch:7999/<group>/<name>.git, " +
					"https://gitlab.cern.ch/<group>/<name>.git, https://:@gitlab.cern.ch:8443/<group>/<name>.git",
			},
		})
		if err != nil {
			return Project{}, err
		}
	}
	if p.Repo.Create {
		if p.Token, err = c.collectToken(ctx, &p, opts); err != nil {
			return Project{}, err
		}
		ui.Success("You have been successfully authenticated on GitLab.")
		if p.Repo, err = c.createdRepository(ctx, p, upload); err != nil {
			return Project{}, err
		}
	}
	if p.Repo.Enabled() {
		ui.Success("The project GitLab repository address is set to: %s", p.Repo.URL)
	} else {
		ui.Success("The project will not be uploaded to GitLab")
	}

	if p.Template, err = c.collectTemplate(opts, clone, p.Demo); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (c *Collector) lookupIdentity(ctx context.Context, login string) (phonebook.Entry, error) {
	s := c.Session
	s.UI.Info("Looking for %s on the phonebook", output.Green(login))
	entry, err := prompt.Resolve(s, prompt.Field[phonebook.Entry]{
		Name:     "CERN username",
		Initial:  login,
		Question: "Please type your " + output.Yellow("CERN username") + ":",
		Resolver: prompt.ResolverFunc[phonebook.Entry](func(v string) (phonebook.Entry, error) {
			return c.Directory.Lookup(ctx, strings.TrimSpace(v))
		}),
		Invalid: "This username does not exist.",
	})
	if err != nil {
		return phonebook.Entry{}, err
	}
	s.UI.Success("Found %s (%s)", entry.DisplayName, entry.PrimaryEmail())
	return entry, nil
}

func (c *Collector) collectBasePath(p *Project, opts Options) error {
	s := c.Session
	initial := opts.BasePath
	if initial == "" && !s.Interactive {
		initial = "."
	}
	cwd, _ := os.Getwd()

	base, err := prompt.Resolve(s, prompt.Field[string]{
		Name:    "path",
		Initial: initial,
		Question: fmt.Sprintf("Please type the %s where to create the new project, "+
			"or type '.' to create it in the current directory (%s):", output.Yellow("path"), cwd),
		Resolver: prompt.ResolverFunc[string](func(v string) (string, error) {
			return c.resolveBasePath(v, p, opts)
		}),
		Invalid: "Please provide a valid path.",
	})
	if err != nil {
		return err
	}
	p.BasePath = base
	s.UI.Success("The project will be created under %s", p.Path())
	return nil
}

func (c *Collector) resolveBasePath(candidate string, p *Project, opts Options) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		candidate = "."
	}
	if strings.HasPrefix(candidate, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			candidate = filepath.Join(home, strings.TrimPrefix(candidate, "~"))
		}
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", prompt.Invalid("path", candidate, err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", prompt.Invalid("path", candidate, "is not an existing directory")
	}

	target := filepath.Join(abs, p.Name)
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		p.ReplaceExisting = false
		return abs, nil
	}

	if opts.Overwrite {
		p.ReplaceExisting = true
		return abs, nil
	}
	if !c.Session.Interactive {
		return "", prompt.Fatal(prompt.Invalid("path", target, "already exists (use --overwrite-project to replace it)"))
	}
	choice, err := prompt.Resolve(c.Session, prompt.Field[string]{
		Name: "existing folder",
		Question: fmt.Sprintf("A folder called '%s' already exists. "+
			"Do you want to overwrite it or to enter another path? (overwrite/another)", target),
		Resolver: prompt.OneOf("existing folder", "overwrite", "another"),
		Invalid:  "Please type 'overwrite' or 'another'.",
	})
	if err != nil {
		return "", prompt.Fatal(err)
	}
	if choice == "overwrite" {
		p.ReplaceExisting = true
		return abs, nil
	}
	return "", prompt.Invalid("path", candidate, "choose another path")
}

func (c *Collector) collectDemo(opts Options) (bool, error) {
	s := c.Session
	var demo bool
	switch {
	case opts.WithDemo && opts.NoDemo:
		return false, prompt.Invalid("demo", "", "--with-demo and --no-demo cannot be used together")
	case opts.WithDemo:
		demo = true
	case opts.NoDemo:
		demo = false
	default:
		var err error
		demo, err = s.YesNo("Do you want to install a "+output.Yellow("demo application")+
			" within your project? It's especially recommended to beginners", true)
		if err != nil {
			return false, err
		}
	}
	if demo {
		s.UI.Success("Your project will contain a demo application.")
	} else {
		s.UI.Success("Your project will not contain the demo application.")
	}
	return demo, nil
}

func (c *Collector) collectToken(ctx context.Context, p *Project, opts Options) (gitlab.Token, error) {
	if opts.GitLabToken != "" {
		return gitlab.PrivateToken(opts.GitLabToken), nil
	}
	s := c.Session
	if !s.Interactive {
		return gitlab.Token{}, prompt.Invalid("GitLab token", "",
			"creating a repository needs --gitlab-auth-token when prompting is disabled")
	}

	if p.AuthorID == "" {
		id, err := prompt.Resolve(s, prompt.Field[string]{
			Name:     "CERN username",
			Question: "Please type your " + output.Yellow("CERN username") + " (to authenticate you on GitLab):",
			Resolver: FreeTextResolver("CERN username"),
		})
		if err != nil {
			return gitlab.Token{}, err
		}
		p.AuthorID = id
	}

	for {
		password, err := s.Asker.Password("Please enter your CERN password (to authenticate you on GitLab):")
		if err != nil {
			return gitlab.Token{}, err
		}
		tok, err := c.GitLab.Authenticate(ctx, p.AuthorID, password)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, gitlab.ErrUnauthorized) {
			return gitlab.Token{}, err
		}
		s.UI.Error("Authentication failed.")
	}
}

// createdRepository places a repository that is about to be created in the
// namespace the API will create it in: the configured group when its id is
// known, the token owner's personal namespace otherwise.
func (c *Collector) createdRepository(ctx context.Context, p Project, upload gitlab.Protocol) (gitlab.Repository, error) {
	namespace := c.Settings.GitLabGroup
	if !c.Settings.CreatesInGroup() {
		user, err := c.GitLab.Username(ctx, p.Token)
		if err != nil {
			return gitlab.Repository{}, err
		}
		namespace = user
	}
	return gitlab.ResolveRepository("default", upload, namespace, p.Name)
}

func (c *Collector) collectTemplate(opts Options, clone gitlab.Protocol, demo bool) (TemplateSource, error) {
	switch {
	case opts.TemplatePath != "":
		info, err := os.Stat(opts.TemplatePath)
		if err != nil || !info.IsDir() {
			return TemplateSource{}, prompt.Invalid("template path", opts.TemplatePath, "is not a directory")
		}
		abs, err := filepath.Abs(opts.TemplatePath)
		if err != nil {
			return TemplateSource{}, err
		}
		return TemplateSource{Path: abs}, nil
	case opts.TemplateURL != "":
		return TemplateSource{URL: opts.TemplateURL}, nil
	}

	src := TemplateSource{URL: clone.RepoURL(c.Settings.GitLabGroup, c.Settings.TemplateName)}
	if !demo {
		src.Branch = "no-demo"
	}
	return src, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
