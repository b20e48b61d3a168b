package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	assert.True(t, cfg.CheckIdentity.Bool)
	assert.False(t, cfg.CheckIdentity.Valid)
	assert.Equal(t, "", cfg.stagingRoot())
}

func TestConfigApply(t *testing.T) {
	t.Parallel()
	cfg := NewConfig().Apply(Config{StagingDir: null.StringFrom("/stage")})
	assert.Equal(t, "/stage", cfg.stagingRoot())
	assert.True(t, cfg.CheckIdentity.Bool)

	cfg = cfg.Apply(Config{CheckIdentity: null.BoolFrom(false)})
	assert.False(t, cfg.CheckIdentity.Bool)
	assert.Equal(t, "/stage", cfg.stagingRoot())

	// Unset fields do not override.
	cfg = cfg.Apply(Config{})
	assert.Equal(t, "/stage", cfg.stagingRoot())
	assert.False(t, cfg.CheckIdentity.Bool)
}

func TestGetConsolidatedConfig(t *testing.T) {
	t.Parallel()

	cfg, err := GetConsolidatedConfig(nil)
	require.NoError(t, err)
	assert.True(t, cfg.CheckIdentity.Bool)

	cfg, err = GetConsolidatedConfig(map[string]string{
		"MODCACHE_TMPDIR":         "/var/stage",
		"MODCACHE_CHECK_IDENTITY": "false",
	})
	require.NoError(t, err)
	assert.Equal(t, "/var/stage", cfg.stagingRoot())
	assert.True(t, cfg.CheckIdentity.Valid)
	assert.False(t, cfg.CheckIdentity.Bool)
}
