package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"migrate", "import", "authoritative", "reconcile", "compare", "analyze", "logos", "serve", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "gsoc-orgs", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestImportCommand_Flags(t *testing.T) {
	flag := importCmd.Flags().Lookup("years")
	require.NotNil(t, flag, "import command should have --years flag")
	assert.Equal(t, "[]", flag.DefValue)
}

func TestReconcileCommand_Flags(t *testing.T) {
	for _, name := range []string{"raw", "authoritative", "out", "save", "review"} {
		assert.NotNil(t, reconcileCmd.Flags().Lookup(name), "reconcile should have --%s flag", name)
	}
	assert.Equal(t, "false", reconcileCmd.Flags().Lookup("save").DefValue)
}

func TestCompareCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"authoritative", "candidate"} {
		flag := compareCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "compare should have --%s flag", name)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	require.NotNil(t, analyzeCmd.Flags().Lookup("raw"))
	top := analyzeCmd.Flags().Lookup("top")
	require.NotNil(t, top)
	assert.Equal(t, "20", top.DefValue)
}

func TestLogosCommand_HasUpload(t *testing.T) {
	cmds := logosCmd.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "upload", cmds[0].Name())
	for _, name := range []string{"orgs", "force", "dry-run"} {
		assert.NotNil(t, logosUploadCmd.Flags().Lookup(name), "logos upload should have --%s flag", name)
	}
}

func TestAuthoritativeCommand_HasFetch(t *testing.T) {
	cmds := authoritativeCmd.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "fetch", cmds[0].Name())
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}
