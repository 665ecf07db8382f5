// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

package config_test

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/storj-labs/workspace-broker/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cmd := &cobra.Command{Use: "brokerd"}
	var cfg config.Config
	config.BindFlags(cmd, &cfg)

	require.NoError(t, config.Load(cmd, &cfg))
	require.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	require.Equal(t, "sqlite3", cfg.DB.Driver)
	require.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	require.Equal(t, "http://localhost:9200", cfg.Search.BaseURL)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FlagOverridesDefault(t *testing.T) {
	cmd := &cobra.Command{Use: "brokerd"}
	var cfg config.Config
	config.BindFlags(cmd, &cfg)

	require.NoError(t, cmd.PersistentFlags().Set("http.listen-addr", ":9090"))
	require.NoError(t, config.Load(cmd, &cfg))
	require.Equal(t, ":9090", cfg.HTTP.ListenAddr)
}

func TestLoad_EnvVarOverridesDefault(t *testing.T) {
	t.Setenv("WIO_DB_DRIVER", "postgres")

	cmd := &cobra.Command{Use: "brokerd"}
	var cfg config.Config
	config.BindFlags(cmd, &cfg)

	require.NoError(t, config.Load(cmd, &cfg))
	require.Equal(t, "postgres", cfg.DB.Driver)
}

func TestLoad_FlagWinsOverEnvVar(t *testing.T) {
	t.Setenv("WIO_LOG_LEVEL", "debug")

	cmd := &cobra.Command{Use: "brokerd"}
	var cfg config.Config
	config.BindFlags(cmd, &cfg)

	require.NoError(t, cmd.PersistentFlags().Set("log.level", "warn"))
	require.NoError(t, config.Load(cmd, &cfg))
	require.Equal(t, "warn", cfg.Log.Level)
}
