package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"match", "dedup", "events", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "brasilintel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}

func TestMatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"insurers", "articles", "feed", "run-id", "no-dedup", "threshold", "output"} {
		assert.NotNil(t, matchCmd.Flags().Lookup(name), "match should have --%s flag", name)
	}
}

func TestDedupCommand_Flags(t *testing.T) {
	for _, name := range []string{"articles", "feed", "threshold", "output"} {
		assert.NotNil(t, dedupCmd.Flags().Lookup(name), "dedup should have --%s flag", name)
	}
}

func TestEventsCommand_Flags(t *testing.T) {
	flag := eventsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "events command should have --limit flag")
	assert.Equal(t, "50", flag.DefValue)
	assert.NotNil(t, eventsCmd.Flags().Lookup("api"))
	assert.NotNil(t, eventsCmd.Flags().Lookup("type"))
}
