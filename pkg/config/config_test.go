package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebulaframe/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad encoding", func(c *Config) { c.Log.Encoding = "xml" }},
		{"bad join type", func(c *Config) { c.Join.Type = "cross" }},
		{"bad arrow mode", func(c *Config) { c.Arrow.Mode = "sloppy" }},
		{"empty version", func(c *Config) { c.Codec.Version = "" }},
		{"metrics without namespace", func(c *Config) { c.Metrics.Namespace = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nebulaframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
join:
  type: left
arrow:
  mode: strict
`), 0o600))

	t.Setenv("NEBULAFRAME_JOIN_TYPE", "full")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "full", cfg.Join.Type)
	assert.Equal(t, "strict", cfg.Arrow.Mode)
	assert.Equal(t, "nebulaframe", cfg.Metrics.Namespace)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestLoadYAMLSubstitutesEnv(t *testing.T) {
	t.Setenv("NF_DATA_DIR", "/data")
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: ${NF_DATA_DIR}/a.json\nmissing: x${NF_NOT_SET}y\n"), 0o600))

	var out struct {
		Input   string `yaml:"input"`
		Missing string `yaml:"missing"`
	}
	require.NoError(t, LoadYAML(path, &out))
	assert.Equal(t, "/data/a.json", out.Input)
	assert.Equal(t, "xy", out.Missing)
}

func TestSaveThenLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	in := Default()
	in.Codec.Indent = "  "
	require.NoError(t, Save(path, in))

	out := &Config{}
	require.NoError(t, LoadYAML(path, out))
	assert.Equal(t, in, out)
}

func TestSubstituteEnvVarsUnterminated(t *testing.T) {
	assert.Equal(t, "a${B", substituteEnvVars("a${B"))
}
