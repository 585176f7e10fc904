package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	envPrefix = "BOOKSHELF"
)

var Module = fx.Provide(NewConfig)

type (
	Config struct {
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		GRPCPort string `mapstructure:"GRPC_PORT"`

		DBDriver   string `mapstructure:"DB_DRIVER"`
		DBPath     string `mapstructure:"DB_PATH"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		LogLevel       string `mapstructure:"LOG_LEVEL"`
		LogDevelopment bool   `mapstructure:"LOG_DEVELOPMENT"`

		BcryptCost int `mapstructure:"BCRYPT_COST"`

		BooksURL     string        `mapstructure:"BOOKS_URL"`
		CountriesURL string        `mapstructure:"COUNTRIES_URL"`
		IPInfoURL    string        `mapstructure:"IP_INFO_URL"`
		HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`

		RetryMax     int           `mapstructure:"RETRY_MAX"`
		RetryBackoff time.Duration `mapstructure:"RETRY_BACKOFF"`

		RemoteRPS   float64 `mapstructure:"REMOTE_RPS"`
		RemoteBurst int     `mapstructure:"REMOTE_BURST"`
	}
)

var defaults = map[string]interface{}{
	"HOST":      "0.0.0.0",
	"PORT":      "1323",
	"GRPC_PORT": "9000",

	"DB_DRIVER":   DriverSQLite,
	"DB_PATH":     "bookshelf.db",
	"DB_HOST":     "0.0.0.0",
	"DB_PORT":     "5432",
	"DB_USER":     "user",
	"DB_PASSWORD": "password",
	"DB_NAME":     "db",
	"DB_SSL_MODE": sslModeDisable,

	"LOG_LEVEL":       "info",
	"LOG_DEVELOPMENT": false,

	"BCRYPT_COST": 12,

	"BOOKS_URL":     "https://www.jsonkeeper.com/b/CNGI",
	"COUNTRIES_URL": "https://api.first.org/data/v1/countries",
	"IP_INFO_URL":   "http://ip-api.com/json/",
	"HTTP_TIMEOUT":  100 * time.Second,

	"RETRY_MAX":     3,
	"RETRY_BACKOFF": 2 * time.Second,

	"REMOTE_RPS":   5.0,
	"REMOTE_BURST": 5,
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func (c *Config) HTTPAddr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) GRPCAddr() string {
	return c.Host + ":" + c.GRPCPort
}

// validate reports every invalid key at once.
func validate(cfg *Config) error {
	var err error
	err = multierr.Append(err, validateSSLMode(cfg.DBSSLMode))
	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		err = multierr.Append(err, errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver)))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		err = multierr.Append(err, errors.New(fmt.Sprintf("bcrypt cost out of range: %d", cfg.BcryptCost)))
	}
	if cfg.RetryMax < 0 {
		err = multierr.Append(err, errors.New(fmt.Sprintf("retry max must not be negative: %d", cfg.RetryMax)))
	}
	if cfg.RemoteRPS <= 0 || cfg.RemoteBurst <= 0 {
		err = multierr.Append(err, errors.New("remote rate limit must be positive"))
	}
	return err
}

func validateSSLMode(mode string) error {
	validSSLValues := []string{sslModeDisable, sslModeRequire}
	for _, validValue := range validSSLValues {
		if mode == validValue {
			return nil
		}
	}
	return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", mode))
}
