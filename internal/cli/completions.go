package cli

import (
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/dbobj/internal/logging"
	"github.com/vvka-141/dbobj/internal/registry"
)

// filterPrefix returns the candidates starting with toComplete.
func filterPrefix(candidates []string, toComplete string) []string {
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, toComplete) {
			matches = append(matches, c)
		}
	}
	return matches
}

// completionRegistry scans the selected application without logging.
// Broken files are skipped; completion works on whatever parses.
func completionRegistry() (*registry.Registry, bool) {
	ws, err := loadWorkspaceWith(globals, logging.NewNullLogger())
	if err != nil {
		return nil, false
	}
	scan, err := ws.scan()
	if err != nil {
		return nil, false
	}
	return scan.Registry, true
}

// completeObjectNames provides shell completion for table and function names.
func completeObjectNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	reg, ok := completionRegistry()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(reg.Names(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeFieldNames completes the fields of the object named by the first argument.
func completeFieldNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	reg, ok := completionRegistry()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	obj, found := reg.Lookup(args[0])
	if !found {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(obj.Fields))
	for _, f := range obj.Fields {
		names = append(names, f.Name)
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTableNames completes the last element of a comma-separated table list.
func completeTableNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	reg, ok := completionRegistry()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	done, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, last = toComplete[:i+1], toComplete[i+1:]
	}
	var matches []string
	for _, t := range reg.Tables() {
		if strings.HasPrefix(t.Name, last) {
			matches = append(matches, done+t.Name)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeVersions provides shell completion for existing version manifests.
func completeVersions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ws, err := loadWorkspaceWith(globals, logging.NewNullLogger())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	manifests, err := ws.manifests().List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	versions := make([]string, 0, len(manifests))
	for _, m := range manifests {
		versions = append(versions, m.Version)
	}
	return filterPrefix(versions, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeApplications provides shell completion for --app.
func completeApplications(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	_, cfg, err := loadProject(globals, logging.NewNullLogger())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := cfg.ApplicationNames()
	if len(names) == 0 && cfg.DefaultApp != "" {
		names = []string{cfg.DefaultApp}
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeEnvironments provides shell completion for --env.
func completeEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	_, cfg, err := loadProject(globals, logging.NewNullLogger())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(cfg.EnvironmentNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeEndpoints completes endpoint names of the selected environment.
func completeEndpoints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ws, err := loadWorkspaceWith(globals, logging.NewNullLogger())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	_, env, err := ws.environment()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return filterPrefix(slices.Sorted(maps.Keys(env.Endpoints)), toComplete), cobra.ShellCompDirectiveNoFileComp
}
