package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "rewind", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only event log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"apply", "undo", "redo", "goto", "state", "log", "fork", "export",
		"import", "verify", "sessions", "revisions", "delete", "prune", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "metrics-file"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"undo", "steps", "1"},
		{"redo", "steps", "1"},
		{"goto", "index", "0"},
		{"goto", "time", "0"},
		{"state", "at", "0"},
		{"state", "rev", "0"},
		{"log", "rev", "0"},
		{"export", "output", ""},
		{"export", "redact", "[]"},
		{"import", "force", "false"},
		{"prune", "keep", "10"},
		{"test", "update", "false"},
		{"test", "filter", ""},
		{"test", "golden-dir", ""},
	}
	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			flag := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	env := newEnv(t)
	_, stderr, code := env.run("--format", "invalid", "sessions")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [E_COMMAND]: invalid format \"invalid\"")
}

func TestMain_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"sessions", "--bogus"}, "invalid flags"},
		{"missing argument", []string{"state"}, "invalid arguments"},
		{"extra argument", []string{"sessions", "extra"}, "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := Main(tt.args, &stdout, &stderr)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stderr.String(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestMain_JSONErrors(t *testing.T) {
	env := newEnv(t)
	_, stderr, code := env.run("--format", "json", "state", "ghost")
	require.Equal(t, ExitCommandError, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stderr), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_COMMAND", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `session "ghost" not found`)
}

func TestMain_VerboseLogsToStderr(t *testing.T) {
	env := newEnv(t)
	stdout, stderr, code := env.run("-v", "apply", "main", env.events(`{"kind":"reset"}`))
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Applied 1 event(s)")
	assert.Contains(t, stderr, "session saved")
}
