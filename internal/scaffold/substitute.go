package scaffold

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Substitution replaces every literal occurrence of Old with New.
type Substitution struct {
	Old string
	New string
}

// Substitutions is a fixed key set applied in a single pass.
//
// Applying the same set twice gives the same result as applying it once: a
// replacement value that itself contains one of the keys is masked before the
// pass and restored after it.
type Substitutions []Substitution

// Apply returns text with every key replaced.
func (s Substitutions) Apply(text string) string {
	pairs := s.effective()
	if len(pairs) == 0 {
		return text
	}

	masks := s.masks(pairs)
	if len(masks) > 0 {
		text = maskReplacer(masks, false).Replace(text)
	}

	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p.Old, p.New)
	}
	text = strings.NewReplacer(args...).Replace(text)

	if len(masks) > 0 {
		text = maskReplacer(masks, true).Replace(text)
	}
	return text
}

// effective drops no-op pairs and orders keys longest first so that the
// longest key wins when two keys start at the same position. An empty New
// erases its key.
func (s Substitutions) effective() []Substitution {
	pairs := make([]Substitution, 0, len(s))
	for _, p := range s {
		if p.Old == "" || p.Old == p.New {
			continue
		}
		pairs = append(pairs, p)
	}
	slices.SortStableFunc(pairs, func(a, b Substitution) int {
		return len(b.Old) - len(a.Old)
	})
	return pairs
}

type mask struct {
	value    string
	sentinel string
}

// masks lists the replacement values that contain a key, longest first.
func (s Substitutions) masks(pairs []Substitution) []mask {
	var out []mask
	for _, p := range pairs {
		if !slices.ContainsFunc(pairs, func(q Substitution) bool { return strings.Contains(p.New, q.Old) }) {
			continue
		}
		if slices.ContainsFunc(out, func(m mask) bool { return m.value == p.New }) {
			continue
		}
		out = append(out, mask{value: p.New})
	}
	slices.SortStableFunc(out, func(a, b mask) int { return len(b.value) - len(a.value) })
	for i := range out {
		out[i].sentinel = fmt.Sprintf("\x00%d\x00", i)
	}
	return out
}

func maskReplacer(masks []mask, restore bool) *strings.Replacer {
	args := make([]string, 0, 2*len(masks))
	for _, m := range masks {
		if restore {
			args = append(args, m.sentinel, m.value)
		} else {
			args = append(args, m.value, m.sentinel)
		}
	}
	return strings.NewReplacer(args...)
}

// ApplyToFile rewrites path in place. Unchanged files are not touched.
func (s Substitutions) ApplyToFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	out := s.Apply(string(data))
	if out == string(data) {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// TextExtensions are the file types that get substituted. Anything else is
// treated as binary and left alone.
var TextExtensions = []string{
	"py", "md", "ui", "qrc", "yml", "gitignore", "sh", "in", "rst", "cfg", "toml", "txt",
}

// Extension returns the text after the last dot, or the whole name when there
// is no dot ("Makefile"), so ".gitignore" yields "gitignore".
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ApplyToTree substitutes every whitelisted file under root, skipping .git.
// It returns the paths that changed, relative to root.
func (s Substitutions) ApplyToTree(root string) ([]string, error) {
	var changed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !slices.Contains(TextExtensions, Extension(d.Name())) {
			return nil
		}
		ok, err := s.ApplyToFile(path)
		if err != nil {
			return err
		}
		if ok {
			rel, _ := filepath.Rel(root, path)
			changed = append(changed, rel)
		}
		return nil
	})
	return changed, err
}
