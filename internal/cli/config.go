package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pthm/relay/internal/logger"
	"github.com/pthm/relay/pkg/config"
	"github.com/pthm/relay/pkg/metadata"
	"github.com/pthm/relay/pkg/validator"
)

const (
	maxWalkDepth = 25
	envPrefix    = "RELAY"
	dotEnvFile   = ".env"
)

// Config represents the CLI configuration from relay.yaml.
type Config struct {
	// RuntimeConfig is the path of the gateway's runtime configuration.
	RuntimeConfig string `mapstructure:"runtime_config"`

	// Snapshot is the path of a recorded schema metadata snapshot.
	Snapshot string `mapstructure:"snapshot"`

	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Validate ValidateConfig `mapstructure:"validate"`
}

// DatabaseConfig overrides the runtime config's data source for
// introspection.
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Dialect string `mapstructure:"dialect"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ValidateConfig holds validator settings.
type ValidateConfig struct {
	LimitedClaimsProviders []string `mapstructure:"limited_claims_providers"`
	ReservedClaims         []string `mapstructure:"reserved_claims"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults. A .env file in the working
// directory is loaded into the environment first; variables already set
// are not overridden.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, "", err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Relative paths in the file are relative to the file.
	if configPath != "" {
		base := filepath.Dir(configPath)
		cfg.RuntimeConfig = resolvePath(base, cfg.RuntimeConfig)
		cfg.Snapshot = resolvePath(base, cfg.Snapshot)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime_config", "relay-config.json")
	v.SetDefault("snapshot", "")

	v.SetDefault("database.url", "")
	v.SetDefault("database.dialect", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("validate.limited_claims_providers", validator.DefaultLimitedClaimsProviders)
	v.SetDefault("validate.reserved_claims", validator.DefaultReservedClaims)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for relay.yaml or relay.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"relay.yaml", "relay.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repository root.
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DSN returns the database connection string: database.url when set,
// otherwise the runtime config's connection string.
func (c *Config) DSN(rc *config.RuntimeConfig) (string, error) {
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	if rc != nil && rc.DataSource.ConnectionString != "" {
		return rc.DataSource.ConnectionString, nil
	}
	return "", fmt.Errorf("database.url is required when the runtime config has no connection string")
}

// Dialect returns the SQL dialect to introspect with: database.dialect
// when set, otherwise the one implied by the runtime config.
func (c *Config) Dialect(rc *config.RuntimeConfig) (metadata.Dialect, error) {
	if c.Database.Dialect != "" {
		switch d := metadata.Dialect(strings.ToLower(c.Database.Dialect)); d {
		case metadata.DialectPostgres, metadata.DialectMySQL:
			return d, nil
		}
		return "", fmt.Errorf("unsupported database.dialect %q", c.Database.Dialect)
	}
	if rc == nil {
		return "", fmt.Errorf("database.dialect is required without a runtime config")
	}
	return metadata.DialectFor(rc.DataSource.DatabaseType)
}

// ValidatorOptions returns the validator settings from the config.
func (c *Config) ValidatorOptions() []validator.Option {
	return []validator.Option{
		validator.WithLimitedClaimsProviders(c.Validate.LimitedClaimsProviders...),
		validator.WithReservedClaims(c.Validate.ReservedClaims...),
	}
}

// NewLogger builds the logger described by the log section, writing to
// stderr and, when log.file is set, to a rotated file.
func (c *Config) NewLogger() (*logger.Logger, error) {
	level := logger.ParseLevel(c.Log.Level)
	if c.Log.File == "" {
		return logger.New(os.Stderr, level), nil
	}
	return logger.NewWithFile(os.Stderr, level, logger.FileConfig{
		Path:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	})
}
