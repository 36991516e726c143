package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "stats"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--guild", "1", "--format", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestStatsCommand_GuildRequired(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guild")
}

func TestStatsOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    StatsOptions
		wantErr string
	}{
		{"valid", StatsOptions{GuildID: 1, Since: 1, Top: 5}, ""},
		{"zero guild", StatsOptions{Since: 1}, "--guild"},
		{"non-positive since", StatsOptions{GuildID: 1}, "--since"},
		{"negative top", StatsOptions{GuildID: 1, Since: 1, Top: -1}, "--top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
