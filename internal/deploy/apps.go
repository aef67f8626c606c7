package deploy

import (
	"os"
	"path/filepath"
	"sort"
)

// App is an application found in one of the shared folders.
type App struct {
	Name     string
	Target   Target
	Location string
}

// ListApps returns the applications under the operational and development
// folders. A name present in both is reported once, as operational.
// Unreadable folders are skipped.
func ListApps(paths Paths) []App {
	seen := map[string]bool{}
	var apps []App
	for _, t := range []Target{Operational, Development} {
		root := paths.For(t)
		if root == "" {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			apps = append(apps, App{Name: e.Name(), Target: t, Location: filepath.Join(root, e.Name())})
		}
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps
}

// AppNames returns the names from ListApps, for shell completion.
func AppNames(paths Paths) []string {
	apps := ListApps(paths)
	names := make([]string, len(apps))
	for i, a := range apps {
		names[i] = a.Name
	}
	return names
}
