// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/input"
	"github.com/iwvelando/property-costs/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PROPERTY_COSTS_STORE_BACKEND.
const EnvPrefix = "PROPERTY_COSTS"

// Configuration holds all configuration for property-costs.
type Configuration struct {
	Logging    LoggingConfig  `yaml:"logging,omitempty"`
	Output     OutputConfig   `yaml:"output,omitempty"`
	Defaults   DefaultsConfig `yaml:"defaults,omitempty"`
	Store      StoreConfig    `yaml:"store,omitempty"`
	Server     ServerConfig   `yaml:"server,omitempty"`
	TariffFile string         `yaml:"tariffFile,omitempty"` // optional tariff override file
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// DefaultsConfig holds the values a fresh calculator starts with.
type DefaultsConfig struct {
	InterestRatePercent float64 `yaml:"interestRatePercent,omitempty"`
	LoanTermYears       int     `yaml:"loanTermYears,omitempty"`
	Bonded              bool    `yaml:"bonded"`
}

// StoreConfig selects where calculator snapshots are kept.
type StoreConfig struct {
	Backend       string `yaml:"backend,omitempty"` // memory, redis, sqlite
	Address       string `yaml:"address,omitempty"` // redis address
	Path          string `yaml:"path,omitempty"`    // sqlite file
	TTL           string `yaml:"ttl,omitempty"`     // redis expiry, e.g. 720h
	TimeoutMillis int    `yaml:"timeoutMillis,omitempty"`
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Address     string `yaml:"address,omitempty"`
	MaxBodySize string `yaml:"maxBodySize,omitempty"` // e.g. 64K
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no config file exists.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		// Defaults alone always decode.
		panic(err)
	}
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("defaults.interestRatePercent", constants.DefaultInterestRatePercent)
	v.SetDefault("defaults.loanTermYears", constants.DefaultLoanTermYears)
	v.SetDefault("defaults.bonded", true)
	v.SetDefault("store.backend", constants.StoreBackendMemory)
	v.SetDefault("store.address", "")
	v.SetDefault("store.path", "")
	v.SetDefault("store.ttl", "")
	v.SetDefault("store.timeoutMillis", constants.DefaultStoreTimeoutMillis)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "")
	v.SetDefault("tariffFile", "")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := validation.ConfigValidator{
		Defaults: validation.DefaultsConfig{
			InterestRatePercent: c.Defaults.InterestRatePercent,
			LoanTermYears:       c.Defaults.LoanTermYears,
		},
		Store: validation.StoreConfig{
			Backend:       c.Store.Backend,
			Address:       c.Store.Address,
			Path:          c.Store.Path,
			TimeoutMillis: c.Store.TimeoutMillis,
		},
	}
	warnings := validator.ValidateAll()

	if _, err := c.Store.TTLDuration(); err != nil {
		warnings = append(warnings, fmt.Sprintf("Store TTL %q is invalid and will be ignored: %v", c.Store.TTL, err))
	}
	return warnings
}

// StoreTimeout returns the per-write snapshot timeout.
func (s StoreConfig) StoreTimeout() time.Duration {
	if s.TimeoutMillis <= 0 {
		return constants.DefaultStoreTimeoutMillis * time.Millisecond
	}
	return time.Duration(s.TimeoutMillis) * time.Millisecond
}

// TTLDuration parses the redis expiry. Empty means no expiry.
func (s StoreConfig) TTLDuration() (time.Duration, error) {
	if strings.TrimSpace(s.TTL) == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(strings.TrimSpace(s.TTL))
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, fmt.Errorf("negative ttl %s", ttl)
	}
	return ttl, nil
}

// InitialState returns the state a new calculator starts from, seeded with
// listedPrice and the configured defaults.
func (d DefaultsConfig) InitialState(listedPrice float64) costs.State {
	state := costs.SeededState(listedPrice)
	state.InterestRatePercent = input.ClampTextRate(d.InterestRatePercent)
	state.LoanTermYears = input.SnapTerm(d.LoanTermYears)
	if !d.Bonded {
		state.IsBonded = false
		state.LoanAmount = 0
	}
	return state
}
