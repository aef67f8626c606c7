package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	templateTitle       = "SY BI PyQt Template"
	templateDescription = "SY BI PyQt Template Code"
	templateNamespace   = "gitlab-group"

	readmeFile         = "README.md"
	readmeTemplateFile = "README-template.md"

	// Placeholder left in the README when the project has no remote.
	missingRepoURL = "<the project's GitLab repo URL>.git"
)

// Cloner fetches a git repository.
type Cloner interface {
	Clone(ctx context.Context, url, dest, branch string) error
}

// FetchTemplate puts a fresh copy of the template at dest, which must not
// exist yet.
func FetchTemplate(ctx context.Context, git Cloner, src TemplateSource, dest string) error {
	if src.Path != "" {
		return CopyTree(src.Path, dest)
	}
	if src.URL == "" {
		return errors.New("no template source given")
	}
	return git.Clone(ctx, src.URL, dest, src.Branch)
}

// CopyTree copies a directory recursively, skipping .git. Symlinks are
// recreated, not followed.
func CopyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.IsDir():
			if d.Name() == ".git" && path != src {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		}
		return nil
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// TemplateSubstitutions maps the template's own names to the project's.
func TemplateSubstitutions(p Project, s Settings) Substitutions {
	return Substitutions{
		{Old: s.TemplateName, New: p.Name},
		{Old: Underscored(s.TemplateName), New: p.PackageName()},
		{Old: templateDescription, New: p.Description},
		{Old: templateTitle, New: p.DisplayName()},
		{Old: s.TemplateAuthor, New: p.Author},
		{Old: s.TemplateEmail, New: p.Email},
		{Old: templateNamespace, New: p.Repo.Namespace()},
	}
}

// ReadmeSubstitutions fills the placeholders of README-template.md.
func ReadmeSubstitutions(p Project) Substitutions {
	repoURL := p.Repo.URL
	if repoURL == "" {
		repoURL = missingRepoURL
	}
	return Substitutions{
		{Old: "https://:@gitlab.cern.ch:8443/cern-username/project-name.git", New: repoURL},
		{Old: "project-name", New: p.Name},
		{Old: "project_name", New: p.PackageName()},
		{Old: "Project Name", New: p.DisplayName()},
		{Old: "_Here goes the project description_", New: p.Description},
		{Old: "the project author", New: p.Author},
		{Old: "author@cern.ch", New: p.Email},
	}
}

// Customize turns a template checkout at p.Path() into the project: the demo
// images are dropped, template names are replaced inside whitelisted files and
// directories carrying a template name are renamed.
func Customize(p Project, s Settings) error {
	root := p.Path()

	if err := os.RemoveAll(filepath.Join(root, "images")); err != nil {
		return fmt.Errorf("remove template images: %w", err)
	}

	if _, err := TemplateSubstitutions(p, s).ApplyToTree(root); err != nil {
		return fmt.Errorf("customize template files: %w", err)
	}

	names := Substitutions{
		{Old: s.TemplateName, New: p.Name},
		{Old: Underscored(s.TemplateName), New: p.PackageName()},
	}
	if err := renameDirs(root, names); err != nil {
		return fmt.Errorf("rename template directories: %w", err)
	}
	return nil
}

// renameDirs renames every directory below root whose name contains a key,
// deepest first so parent paths stay valid while walking.
func renameDirs(root string, names Substitutions) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if names.Apply(d.Name()) != d.Name() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortFunc(dirs, func(a, b string) int {
		return strings.Count(b, string(filepath.Separator)) - strings.Count(a, string(filepath.Separator))
	})
	for _, dir := range dirs {
		renamed := filepath.Join(filepath.Dir(dir), names.Apply(filepath.Base(dir)))
		if err := os.Rename(dir, renamed); err != nil {
			return err
		}
	}
	return nil
}

// GenerateReadme replaces the template README with README-template.md filled
// in for the project.
func GenerateReadme(p Project) error {
	root := p.Path()
	readme := filepath.Join(root, readmeFile)
	tmpl := filepath.Join(root, readmeTemplateFile)

	if _, err := os.Stat(tmpl); err != nil {
		return fmt.Errorf("README template not found: %w", err)
	}
	if err := os.Remove(readme); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmpl, readme); err != nil {
		return err
	}
	_, err := ReadmeSubstitutions(p).ApplyToFile(readme)
	return err
}
