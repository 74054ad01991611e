package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/timeline"
)

type tick struct{}

func (tick) EventType() string { return "tick" }

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, timeline.DefaultMaxEvents, cfg.MaxEvents)
	assert.True(t, cfg.Checkpoints.Enabled)
	assert.Equal(t, DefaultArchivePath, cfg.Archive.Path)
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Config{
		MaxEvents:    50,
		Checkpoints:  Checkpoints{Enabled: false, Interval: 7},
		Compaction:   Compaction{Numerator: 1, Denominator: 4},
		RedactFields: []string{"key"},
		Archive:      Archive{Path: "/tmp/rewind-test.db"},
	}, cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("max_events: 10\n"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxEvents)
	assert.True(t, cfg.Checkpoints.Enabled)
	assert.Equal(t, timeline.DefaultCheckpointInterval, cfg.Checkpoints.Interval)
	assert.Equal(t, 2, cfg.Compaction.Denominator)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "max_event: 3\n", "field max_event not found"},
		{"bad type", "max_events: many\n", "failed to parse YAML"},
		{"zero max", "max_events: 0\n", "max_events must be positive"},
		{"zero interval", "checkpoints:\n  interval: 0\n", "checkpoints.interval must be positive"},
		{"whole fraction", "compaction:\n  numerator: 2\n  denominator: 2\n", "compaction must satisfy"},
		{"empty redact", "redact_fields: ['']\n", "redact_fields[0] is empty"},
		{"empty archive path", "archive:\n  path: ''\n", "archive.path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions_ConfigureStore(t *testing.T) {
	cfg, err := Parse([]byte(`
max_events: 4
checkpoints:
  interval: 1
compaction:
  numerator: 1
  denominator: 4
redact_fields: [secret]
`))
	require.NoError(t, err)

	s, err := timeline.New(0, func(n int, _ ir.Event[tick]) int { return n + 1 }, cfg.Options()...)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.Append(tick{})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, s.MaxEvents())
	assert.Equal(t, 4, s.Len(), "5*1/4 = 1 event dropped")
	assert.Equal(t, 1, s.Compactions())
	assert.Equal(t, []string{"secret"}, s.RedactFields())
	assert.Equal(t, []int{0}, s.Checkpoints(), "compaction re-bases checkpoints on the seed")
}

func TestOptions_CheckpointsDisabled(t *testing.T) {
	cfg, err := Parse([]byte("checkpoints:\n  enabled: false\n"))
	require.NoError(t, err)

	s, err := timeline.New(0, func(n int, _ ir.Event[tick]) int { return n + 1 }, cfg.Options()...)
	require.NoError(t, err)
	assert.Empty(t, s.Checkpoints())
}
