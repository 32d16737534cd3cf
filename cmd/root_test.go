package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"merge", "enrich", "runs", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "crm-merge-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestMergeCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"execute", "report-dir", "batch-size", "delay"} {
		flag := mergeCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "merge should have --%s flag", flagName)
	}

	execute := mergeCmd.Flags().Lookup("execute")
	require.NotNil(t, execute)
	assert.Equal(t, "false", execute.DefValue, "merge defaults to dry run")
}

func TestEnrichCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"sheet", "skip-rows"} {
		flag := enrichCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "enrich should have --%s flag", flagName)
	}
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	cmds := runsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "show"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}
