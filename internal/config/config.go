// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/placescan/internal/progress"
)

// Config holds the full application configuration.
type Config struct {
	Library  LibraryConfig   `yaml:"library" mapstructure:"library"`
	Boundary BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Geocode  GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Scan     ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Progress progress.Config `yaml:"progress" mapstructure:"progress"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// LibraryConfig configures the photo library provider.
type LibraryConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest"`
}

// BoundaryConfig configures the offline boundary index.
type BoundaryConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// GeocodeConfig configures the reverse-geocoding provider.
type GeocodeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScanConfig configures clustering and phase-2 pacing.
type ScanConfig struct {
	CellSizeDeg float64 `yaml:"cell_size_deg" mapstructure:"cell_size_deg"`
	BatchSize   int     `yaml:"batch_size" mapstructure:"batch_size"`
	PaceMillis  int     `yaml:"pace_millis" mapstructure:"pace_millis"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PLACESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("library.manifest", "photos.json")
	v.SetDefault("boundary.data_dir", "boundaries")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "placescan/1.0")
	v.SetDefault("geocode.rate_limit", 1)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("scan.cell_size_deg", 0.009)
	v.SetDefault("scan.batch_size", 200)
	v.SetDefault("scan.pace_millis", 50)
	v.SetDefault("progress.driver", "sqlite")
	v.SetDefault("progress.database_url", "placescan.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
