package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCompleteObjectNames(t *testing.T) {
	setupProject(t, projectFiles)

	got, directive := completeObjectNames(tagCmd, nil, "")
	assert.Equal(t, []string{"answer", "orders", "users"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	got, _ = completeObjectNames(tagCmd, nil, "o")
	assert.Equal(t, []string{"orders"}, got)

	got, _ = completeObjectNames(tagCmd, []string{"users"}, "")
	assert.Empty(t, got)
}

func TestCompleteFieldNames(t *testing.T) {
	setupProject(t, projectFiles)

	got, _ := completeFieldNames(tagCmd, []string{"users"}, "")
	assert.Equal(t, []string{"pk_id", "name", "email"}, got)

	got, _ = completeFieldNames(tagCmd, []string{"users"}, "e")
	assert.Equal(t, []string{"email"}, got)

	got, _ = completeFieldNames(tagCmd, nil, "")
	assert.Empty(t, got)
}

func TestCompleteTableNames_CommaSeparated(t *testing.T) {
	setupProject(t, projectFiles)

	got, directive := completeTableNames(replicationToCmd, nil, "users,o")
	assert.Equal(t, []string{"users,orders"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp|cobra.ShellCompDirectiveNoSpace, directive)

	got, _ = completeTableNames(replicationToCmd, nil, "")
	assert.Equal(t, []string{"orders", "users"}, got)
}

func TestCompleteProjectNames(t *testing.T) {
	setupProject(t, projectFiles)

	apps, _ := completeApplications(rootCmd, nil, "")
	assert.Equal(t, []string{"shop"}, apps)

	envs, _ := completeEnvironments(rootCmd, nil, "lo")
	assert.Equal(t, []string{"local"}, envs)

	endpoints, _ := completeEndpoints(replicationToCmd, nil, "")
	assert.Equal(t, []string{"primary", "replica"}, endpoints)
}

func TestCompleteVersions(t *testing.T) {
	setupProject(t, projectFiles)
	capture(t, newVersionCmd)
	newVersionForce = false

	got, _ := completeVersions(checkVersionCmd, nil, "")
	assert.Empty(t, got)

	for _, v := range []string{"1.0", "1.1"} {
		if err := runNewVersion(newVersionCmd, []string{v}); err != nil {
			t.Fatal(err)
		}
	}
	got, _ = completeVersions(checkVersionCmd, nil, "1.")
	assert.ElementsMatch(t, []string{"1.0", "1.1"}, got)
}

func TestCompletions_BrokenConfig(t *testing.T) {
	setupProject(t, map[string]string{"dbobj.yaml": "default_env: nowhere\n"})

	_, directive := completeObjectNames(tagCmd, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveError, directive)
}
