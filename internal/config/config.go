package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Boundary  BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Crosswalk CrosswalkConfig `yaml:"crosswalk" mapstructure:"crosswalk"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Format    Format          `yaml:"format" mapstructure:"format"`
}

// BoundaryConfig locates the state and county boundary sets.
type BoundaryConfig struct {
	CountyPath string  `yaml:"county_path" mapstructure:"county_path"`
	StatePath  string  `yaml:"state_path" mapstructure:"state_path"`
	Simplify   float64 `yaml:"simplify" mapstructure:"simplify"`
	PostGISURL string  `yaml:"postgis_url" mapstructure:"postgis_url"`
	Schema     string  `yaml:"schema" mapstructure:"schema"`
	TempDir    string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	TigerYear  int     `yaml:"tiger_year" mapstructure:"tiger_year"`
}

// CrosswalkConfig locates the CBSA to county crosswalk.
type CrosswalkConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the sqlite reference cache.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHOROPLETH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("boundary.county_path", "")
	v.SetDefault("boundary.state_path", "")
	v.SetDefault("boundary.simplify", 0.028)
	v.SetDefault("boundary.postgis_url", "")
	v.SetDefault("boundary.schema", "tiger_data")
	v.SetDefault("boundary.temp_dir", "/tmp/choropleth")
	v.SetDefault("boundary.tiger_year", 2023)
	v.SetDefault("crosswalk.path", "")
	v.SetDefault("store.path", "choropleth.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	setFormatDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "load":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required")
		}
	case "join":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if c.Boundary.Simplify < 0 {
		errs = append(errs, "boundary.simplify must be >= 0")
	}
	if c.Format.NColors < 0 {
		errs = append(errs, "format.ncolors must be >= 0")
	}
	if c.Format.FillAlpha < 0 || c.Format.FillAlpha > 1 {
		errs = append(errs, "format.fill_alpha must be between 0 and 1")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
