package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage bipy-gui-manager configuration.

Running bare 'bipy-gui-manager config' is the same as 'bipy-gui-manager config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# bipy-gui-manager configuration
# See: bipy-gui-manager config show (for effective values and sources)

# External programs
git:
  path: "{{ .GitPath }}"
shell:
  path: "{{ .ShellPath }}"
phonebook:
  command: "{{ .PhonebookCommand }}"

# GitLab
gitlab:
  url: "{{ .GitLabURL }}"
  # Group new repositories are created under
  group: "{{ .GitLabGroup }}"
  # Numeric id of that group (0: create in your personal namespace)
  group_id: {{ .GitLabGroupID }}
  # User granted reporter access to build the documentation (0: none)
  docs_user_id: {{ .DocsUserID }}

# Template repository (cloned from the GitLab group above)
template:
  name: "{{ .TemplateName }}"
  author: "{{ .TemplateAuthor }}"
  email: "{{ .TemplateEmail }}"

# Shared folders used by deploy and run
deploy:
  operational_path: "{{ .OperationalPath }}"
  development_path: "{{ .DevelopmentPath }}"
  acc_py_path: "{{ .AccPyPath }}"
  # Branches a project may be deployed from
  branches:{{ range .Branches }}
    - {{ . }}{{ end }}

# Folder holding appinstaller.sh, used by release
release:
  folder: "{{ .ReleaseFolder }}"
`

type configTemplateData struct {
	GitPath          string
	ShellPath        string
	PhonebookCommand string
	GitLabURL        string
	GitLabGroup      string
	GitLabGroupID    int
	DocsUserID       int
	TemplateName     string
	TemplateAuthor   string
	TemplateEmail    string
	OperationalPath  string
	DevelopmentPath  string
	AccPyPath        string
	Branches         []string
	ReleaseFolder    string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		GitPath:          viper.GetString("git.path"),
		ShellPath:        viper.GetString("shell.path"),
		PhonebookCommand: viper.GetString("phonebook.command"),
		GitLabURL:        viper.GetString("gitlab.url"),
		GitLabGroup:      viper.GetString("gitlab.group"),
		GitLabGroupID:    viper.GetInt("gitlab.group_id"),
		DocsUserID:       viper.GetInt("gitlab.docs_user_id"),
		TemplateName:     viper.GetString("template.name"),
		TemplateAuthor:   viper.GetString("template.author"),
		TemplateEmail:    viper.GetString("template.email"),
		OperationalPath:  viper.GetString("deploy.operational_path"),
		DevelopmentPath:  viper.GetString("deploy.development_path"),
		AccPyPath:        viper.GetString("deploy.acc_py_path"),
		Branches:         viper.GetStringSlice("deploy.branches"),
		ReleaseFolder:    viper.GetString("release.folder"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "git.path", EnvVar: "BIPY_GIT_PATH"},
	{Key: "shell.path", EnvVar: "BIPY_SHELL_PATH"},
	{Key: "phonebook.command", EnvVar: "BIPY_PHONEBOOK_COMMAND"},
	{Key: "gitlab.url", EnvVar: "BIPY_GITLAB_URL"},
	{Key: "gitlab.group", EnvVar: "BIPY_GITLAB_GROUP"},
	{Key: "gitlab.group_id", EnvVar: "BIPY_GITLAB_GROUP_ID"},
	{Key: "gitlab.docs_user_id", EnvVar: "BIPY_GITLAB_DOCS_USER_ID"},
	{Key: "template.name", EnvVar: "BIPY_TEMPLATE_NAME"},
	{Key: "template.author", EnvVar: "BIPY_TEMPLATE_AUTHOR"},
	{Key: "template.email", EnvVar: "BIPY_TEMPLATE_EMAIL"},
	{Key: "deploy.operational_path", EnvVar: "BIPY_DEPLOY_OPERATIONAL_PATH"},
	{Key: "deploy.development_path", EnvVar: "BIPY_DEPLOY_DEVELOPMENT_PATH"},
	{Key: "deploy.acc_py_path", EnvVar: "BIPY_DEPLOY_ACC_PY_PATH"},
	{Key: "deploy.branches", EnvVar: "BIPY_DEPLOY_BRANCHES"},
	{Key: "release.folder", EnvVar: "BIPY_RELEASE_FOLDER"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set: set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'bipy-gui-manager config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
