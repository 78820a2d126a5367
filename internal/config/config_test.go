// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "repairfill", cfg.Logger().ServiceName)
	assert.Equal(t, DriverChromedp, cfg.Browser().Driver)
	assert.Equal(t, 10*time.Second, cfg.Browser().OperationTimeout)
	assert.Equal(t, 2*time.Second, cfg.Automation().WaitTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Automation().PollInterval)
	assert.Equal(t, 600*time.Millisecond, cfg.Automation().Settle.BeforeParts)
	assert.Equal(t, 1200*time.Millisecond, cfg.Automation().Settle.AfterSerial)
	assert.Equal(t, 3, cfg.Automation().ConfirmAttempts)
	assert.Equal(t, "2.0", cfg.Automation().FlowRateLow)
	assert.Equal(t, "5.0", cfg.Automation().FlowRateHigh)
	assert.Equal(t, BackendSQLite, cfg.Store().Backend)
	assert.Equal(t, "repairfill.status", cfg.Events().Subject)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		require.NoError(t, cfg.Validate(), "A valid config should not produce a validation error")

		badDriver := *cfg
		badDriver.BrowserCfg.Driver = "selenium"
		err := badDriver.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.driver must be one of")

		badRate := *cfg
		badRate.ServerCfg.RateLimit = 0
		err = badRate.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.rate_limit must be positive")
	})

	t.Run("Automation Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Automation()
		assert.NoError(t, valid.Validate())

		zeroWait := valid
		zeroWait.FieldWaitTimeout = 0
		err := zeroWait.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field_wait_timeout must be a positive duration")

		slowPoll := valid
		slowPoll.PollInterval = 5 * time.Second
		err = slowPoll.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not exceed wait_timeout")

		noAttempts := valid
		noAttempts.ConfirmAttempts = 0
		assert.Error(t, noAttempts.Validate())
	})

	t.Run("Store Validation", func(t *testing.T) {
		assert.NoError(t, (&StoreConfig{Backend: BackendMemory}).Validate())
		assert.NoError(t, (&StoreConfig{Backend: BackendRedis, RedisAddr: "localhost:6379"}).Validate())

		err := (&StoreConfig{Backend: BackendPostgres}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dsn is required for the postgres backend")

		err = (&StoreConfig{Backend: "etcd"}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown backend "etcd"`)
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  driver: rod
  headless: true
automation:
  wait_timeout: 3s
  settle:
    after_serial: 2s
store:
  backend: memory
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, DriverRod, cfg.Browser().Driver)
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, 3*time.Second, cfg.Automation().WaitTimeout)
		assert.Equal(t, 2*time.Second, cfg.Automation().Settle.AfterSerial)
		// Defaults survive next to the overridden values.
		assert.Equal(t, 350*time.Millisecond, cfg.Automation().Settle.AfterParts)
		assert.Equal(t, BackendMemory, cfg.Store().Backend)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("automation.confirm_attempts", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "confirm_attempts must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("store.backend", BackendPostgres)

		testDSN := "postgres://envvar/prefs"
		t.Setenv("REPAIRFILL_STORE_DSN", testDSN)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, testDSN, cfg.Store().DSN)
	})

	t.Run("Home Directory Expansion", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		v := viper.New()
		SetDefaults(v)
		v.Set("store.dsn", "~/prefs.db")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.NotContains(t, cfg.Store().DSN, "~")
		assert.Contains(t, cfg.Store().DSN, "prefs.db")
	})
}

func TestSetServerListenAddr(t *testing.T) {
	var cfg Interface = NewDefaultConfig()
	cfg.SetServerListenAddr("127.0.0.1:9999")
	assert.Equal(t, "127.0.0.1:9999", cfg.Server().ListenAddr)
}
