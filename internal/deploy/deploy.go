package deploy

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
)

var (
	//go:embed assets/app_deploy.sh
	appDeployScript []byte
	//go:embed assets/app_run.sh
	appRunScript []byte
)

// ErrNotReady is returned when a readiness check failed. The failure has
// already been reported to the user.
var ErrNotReady = errors.New("project is not ready to be deployed")

// ErrNoApp is returned by Run when no application name is given.
var ErrNoApp = errors.New("no application given")

// Target selects the shared folder an application goes to.
type Target int

const (
	Development Target = iota
	Operational
)

func (t Target) String() string {
	if t == Operational {
		return "operational"
	}
	return "development"
}

// Paths locates the shared folders.
type Paths struct {
	Operational   string
	Development   string
	AccPy         string
	ReleaseFolder string
}

// For returns the folder used by t.
func (p Paths) For(t Target) string {
	if t == Operational {
		return p.Operational
	}
	return p.Development
}

// DefaultPaths returns the standard BI locations.
func DefaultPaths() Paths {
	return Paths{
		Operational:   "/user/bdisoft/operational/python/gui",
		Development:   "/user/bdisoft/development/python/gui",
		AccPy:         "/acc/local/share/python/acc-py/pro",
		ReleaseFolder: "~/GUI/deploy-folder",
	}
}

// Deployer checks projects and hands them over to the deploy scripts.
type Deployer struct {
	UI      *output.UI
	Runner  proc.Runner
	Shell   string
	Checker *Checker
	Paths   Paths
}

// Deploy installs the project at path into the target folder, under the name
// of its entry point so that Run can find it. An empty entryPoint is read
// from the project itself.
func (d *Deployer) Deploy(ctx context.Context, path, entryPoint string, target Target) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := d.ensureReady(ctx, abs); err != nil {
		return err
	}

	name := entryPoint
	if name == "" {
		if name, err = EntryPoint(abs); err != nil {
			return err
		}
	}
	d.UI.Info("Deploying %s to the %s folder (%s)", output.Cyan(name), target, d.Paths.For(target))
	if d.UI.DryRun {
		d.UI.DryRunMsg("Would run app_deploy.sh %s %s %s %s", abs, d.Paths.For(target), d.Paths.AccPy, name)
		return nil
	}

	err = d.runScript(ctx, appDeployScript, "app_deploy",
		abs, d.Paths.For(target), d.Paths.AccPy, name, boolFlag(d.UI.Verbose))
	var exit *proc.ExitError
	if errors.As(err, &exit) {
		d.UI.Error("Deploy failed: %d.", exit.Code)
		return fmt.Errorf("deploy %s: %w", name, err)
	}
	if err != nil {
		return err
	}
	d.UI.Success("New project %s deployed successfully. It should now be available to the AppLauncher.", name)
	return nil
}

// Release hands the project over to the appinstaller of the release folder.
// An empty entryPoint is read from the project itself.
func (d *Deployer) Release(ctx context.Context, path, entryPoint string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := d.ensureReady(ctx, abs); err != nil {
		return err
	}

	if entryPoint == "" {
		if entryPoint, err = EntryPoint(abs); err != nil {
			return err
		}
	}
	remote, err := d.Checker.Git.RemoteURL(ctx, abs)
	if err != nil {
		return err
	}
	folder := expandHome(d.Paths.ReleaseFolder)
	d.UI.VerboseLog("Entry point %s, remote %s", entryPoint, remote)
	d.UI.Info("Releasing %s from %s", output.Cyan(entryPoint), folder)

	if d.UI.DryRun {
		d.UI.DryRunMsg("Would run ./appinstaller.sh %s %s in %s", entryPoint, remote, folder)
		return nil
	}

	_, err = d.Runner.Run(ctx, proc.Command{
		Name:   d.Shell,
		Args:   []string{"-c", `./appinstaller.sh "$1" "$2"`, "appinstaller", entryPoint, remote},
		Dir:    folder,
		Stdout: d.UI.Out,
		Stderr: d.UI.ErrOut,
	})
	if err != nil {
		d.UI.Error("Release failed: %v", err)
		d.UI.Hint("You can still try a manual install. To do so, follow these steps:")
		d.UI.Hint("  - cd %s", folder)
		d.UI.Hint("  - ./appinstaller.sh <entry point name> <gitlab URL of the project>")
		d.UI.Hint("If you observe errors, please report them immediately to the maintainers.")
		return fmt.Errorf("release %s: %w", entryPoint, err)
	}
	d.UI.Success("New project %s released successfully. It should now be available to the AppLauncher.", entryPoint)
	return nil
}

// Run launches a deployed application.
func (d *Deployer) Run(ctx context.Context, app string, target Target) error {
	app = strings.TrimSpace(app)
	if app == "" {
		d.UI.Error("Please specify the name of the application to run. " +
			"Remember that it must be deployed before it can be run with this command.")
		return ErrNoApp
	}
	if d.UI.DryRun {
		d.UI.DryRunMsg("Would run app_run.sh %s %s %s", app, d.Paths.For(target), d.Paths.AccPy)
		return nil
	}

	err := d.runScript(ctx, appRunScript, "app_run", app, d.Paths.For(target), d.Paths.AccPy)
	var exit *proc.ExitError
	if errors.As(err, &exit) {
		d.UI.Error("Launch failed: %d.", exit.Code)
		return fmt.Errorf("run %s: %w", app, err)
	}
	return err
}

// ensureReady runs the checks, prints them and fails when any did not pass.
func (d *Deployer) ensureReady(ctx context.Context, path string) error {
	d.UI.Info("Running checks on %s...", filepath.Base(path))
	checks := d.Checker.Run(ctx, path)

	for _, c := range checks {
		if c.Passed {
			d.UI.VerboseLog("%s %-15s %s", output.CheckColor(true), c.Name, c.Detail)
			continue
		}
		d.UI.Error("%s", c.Detail)
		for _, h := range c.Hints {
			d.UI.Hint("%s", h)
		}
	}
	if !Ready(checks) {
		return ErrNotReady
	}
	d.UI.Success("The project is ready to deploy")
	return nil
}

// runScript writes script to a temporary file and runs it with the shell.
func (d *Deployer) runScript(ctx context.Context, script []byte, name string, args ...string) error {
	f, err := os.CreateTemp("", name+"-*.sh")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(script); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		return err
	}

	d.UI.VerboseLog("Executing %s %s", name, strings.Join(args, " "))
	_, err = d.Runner.Run(ctx, proc.Command{
		Name:   d.Shell,
		Args:   append([]string{f.Name()}, args...),
		Stdout: d.UI.Out,
		Stderr: d.UI.ErrOut,
	})
	return err
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
