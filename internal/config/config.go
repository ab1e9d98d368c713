// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Name string
		Env  string
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN              string
		MaxConns         int32         `mapstructure:"max_conns"`
		MinConns         int32         `mapstructure:"min_conns"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	} `mapstructure:"postgres"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	Logger struct {
		Level       string
		Development bool
	} `mapstructure:"logger"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Audit struct {
		// CompressThreshold is the payload size in bytes above which audit
		// payloads are stored zstd-compressed.
		CompressThreshold int `mapstructure:"compress_threshold"`
	} `mapstructure:"audit"`
}

// Load reads configuration from the given file. A .env file in the working
// directory, if present, is loaded first so the UNISTOCK_* overrides work
// in local development too.
func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("UNISTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "unistock")
	v.SetDefault("app.env", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)

	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.statement_timeout", 30*time.Second)

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("audit.compress_threshold", 1024)
}
