package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// ConsoleScripts reads the console_scripts entry points declared in the
// project's setup.cfg, in declaration order. A missing setup.cfg yields none.
func ConsoleScripts(projectPath string) ([]string, error) {
	path := filepath.Join(projectPath, "setup.cfg")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	raw := cfg.Section("options.entry_points").Key("console_scripts").String()
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		name, _, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// EntryPoint picks the name the application is installed under: the first
// console script when setup.cfg declares one, the folder name otherwise.
func EntryPoint(projectPath string) (string, error) {
	scripts, err := ConsoleScripts(projectPath)
	if err != nil {
		return "", err
	}
	if len(scripts) > 0 {
		return scripts[0], nil
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	return filepath.Base(abs), nil
}
