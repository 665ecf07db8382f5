// Package config declares the broker's typed configuration and wires
// it to flags and environment variables the way the teacher's cmd/*
// binaries do: a Config struct tagged with `default` values bound onto
// a cobra command's flags via pkg/cfgstruct, then overlaid by viper so
// every flag can also be set as a "wio_"-prefixed environment variable
// (e.g. WIO_HTTP_LISTEN_ADDR).
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/storj-labs/workspace-broker/pkg/cfgstruct"
)

// EnvPrefix is the environment variable prefix every config field is
// exposed under (spec §6 "Configuration").
const EnvPrefix = "wio"

// HTTPConfig configures cmd/brokerd's REST listener.
type HTTPConfig struct {
	ListenAddr string `default:":8080"`
	// PublicName is the externally reachable address returned by
	// GET /api/info, spec §6's `public_name` config var.
	PublicName string `default:"http://localhost:8080"`
}

// DBConfig configures the persistence backend (internal/repository/sqldb).
type DBConfig struct {
	Driver string `default:"sqlite3"`
	DSN    string `default:"file::memory:?mode=memory&cache=shared"`
}

// RedisConfig configures the root-index-cache redis tier
// (SPEC_FULL.md's RootIndexCache supplement).
type RedisConfig struct {
	Address string        `default:""`
	TTL     time.Duration `default:"5m"`
}

// SearchConfig configures the search engine bulk endpoint (§4.I).
type SearchConfig struct {
	BaseURL string `default:"http://localhost:9200"`
}

// LogConfig configures the process-wide zap logger.
type LogConfig struct {
	Level string `default:"info"`
}

// Config aggregates every component's configuration into the single
// struct cmd/brokerd binds flags against.
type Config struct {
	HTTP   HTTPConfig
	DB     DBConfig
	Redis  RedisConfig
	Search SearchConfig
	Log    LogConfig
}

// BindFlags registers every Config field as a persistent flag on cmd,
// the way cmd/uplink binds its root command's flags.
func BindFlags(cmd *cobra.Command, cfg *Config) {
	cfgstruct.Bind(cmd.PersistentFlags(), cfg)
}

// Load overlays process flags with "wio_"-prefixed environment
// variables via viper, then unmarshals the merged result back into
// cfg. Flags explicitly set on the command line always win over the
// environment, matching cobra/viper's usual precedence.
func Load(cmd *cobra.Command, cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}

	cfg.HTTP.ListenAddr = v.GetString("http.listen-addr")
	cfg.HTTP.PublicName = v.GetString("http.public-name")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Redis.Address = v.GetString("redis.address")
	cfg.Redis.TTL = v.GetDuration("redis.ttl")
	cfg.Search.BaseURL = v.GetString("search.base-url")
	cfg.Log.Level = v.GetString("log.level")
	return nil
}
