package modules

import (
	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"
)

// Config holds the tunables of the module cache.
type Config struct {
	// StagingDir overrides the root under which per-load staging directories
	// are created. Empty means the process TMPDIR (default /tmp).
	StagingDir null.String `json:"stagingDir" envconfig:"MODCACHE_TMPDIR"`

	// CheckIdentity controls whether modern-generation lookups validate the
	// cached module against the file on disk. On by default.
	CheckIdentity null.Bool `json:"checkIdentity" envconfig:"MODCACHE_CHECK_IDENTITY"`
}

// NewConfig creates a new Config instance with default values for some fields.
func NewConfig() Config {
	return Config{
		CheckIdentity: null.NewBool(true, false),
	}
}

// Apply saves config non-zero config values from the passed config in the
// receiver and returns it.
func (c Config) Apply(cfg Config) Config {
	if cfg.StagingDir.Valid {
		c.StagingDir = cfg.StagingDir
	}
	if cfg.CheckIdentity.Valid {
		c.CheckIdentity = cfg.CheckIdentity
	}
	return c
}

// GetConsolidatedConfig combines the default config with the environment
// overrides from env and returns the result.
func GetConsolidatedConfig(env map[string]string) (Config, error) {
	result := NewConfig()

	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, err
	}

	return result.Apply(envConfig), nil
}

func (c Config) stagingRoot() string {
	if c.StagingDir.Valid {
		return c.StagingDir.String
	}
	return "" // afero.TempDir falls back to the process TMPDIR
}
