package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "taxonomy_itsm_v1.json", cfg.Pipeline.TaxonomyPath)
	assert.Equal(t, "parts/part_*.jsonl", cfg.Pipeline.InputGlob)
	assert.Equal(t, "dataset_clean.jsonl", cfg.Pipeline.OutJSONL)
	assert.Equal(t, "dataset_clean.csv", cfg.Pipeline.OutCSV)
	assert.Equal(t, "dataset_rejected.jsonl", cfg.Pipeline.OutRejected)
	assert.False(t, cfg.Pipeline.ApplyFixes)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Encoding)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ITSM_TAXONOMY", "custom/taxonomy.json")
	t.Setenv("ITSM_INPUT_GLOB", "shards/*.jsonl")
	t.Setenv("ITSM_APPLY_FIXES", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "custom/taxonomy.json", cfg.Pipeline.TaxonomyPath)
	assert.Equal(t, "shards/*.jsonl", cfg.Pipeline.InputGlob)
	assert.True(t, cfg.Pipeline.ApplyFixes)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
taxonomy: yaml/taxonomy.json
input_glob: yaml/parts/*.jsonl
out_jsonl: yaml/clean.jsonl
apply_fixes: true
log:
  level: warn
  encoding: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml/taxonomy.json", cfg.Pipeline.TaxonomyPath)
	assert.Equal(t, "yaml/parts/*.jsonl", cfg.Pipeline.InputGlob)
	assert.Equal(t, "yaml/clean.jsonl", cfg.Pipeline.OutJSONL)
	// Unset YAML keys keep their defaults.
	assert.Equal(t, "dataset_clean.csv", cfg.Pipeline.OutCSV)
	assert.True(t, cfg.Pipeline.ApplyFixes)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Encoding)
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("taxonomy: yaml/taxonomy.json\n"), 0o644))
	t.Setenv("ITSM_TAXONOMY", "env/taxonomy.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env/taxonomy.json", cfg.Pipeline.TaxonomyPath)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("taxonomy: [unterminated\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
