// Package config loads powchain settings from defaults, an optional YAML file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server ServerConfig
	Chain  ChainConfig
	Client ClientConfig
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	// RateLimitRPS is the per-IP budget for everything except submissions.
	RateLimitRPS int
	// SubmitPerMinute and SubmitBurst bound POST /transaction per IP.
	SubmitPerMinute int
	SubmitBurst     int
}

// ChainConfig controls mining.
type ChainConfig struct {
	Difficulty int
}

// ClientConfig controls commands that talk to a running server.
type ClientConfig struct {
	RemoteURL string
	Timeout   time.Duration
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.submit_per_minute", 30)
	v.SetDefault("server.submit_burst", 5)
	v.SetDefault("chain.difficulty", 4)
	v.SetDefault("client.remote_url", "")
	v.SetDefault("client.timeout", "30s")
}

// Load reads configuration into v. When cfgFile is empty it looks for
// powchain.yaml in ./configs and the working directory; a missing file is not
// an error. Environment variables override file values (SERVER_PORT,
// CHAIN_DIFFICULTY, ...).
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("powchain")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from already-populated viper state.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			RateLimitRPS:    v.GetInt("server.rate_limit_rps"),
			SubmitPerMinute: v.GetInt("server.submit_per_minute"),
			SubmitBurst:     v.GetInt("server.submit_burst"),
		},
		Chain: ChainConfig{
			Difficulty: v.GetInt("chain.difficulty"),
		},
		Client: ClientConfig{
			RemoteURL: v.GetString("client.remote_url"),
			Timeout:   v.GetDuration("client.timeout"),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.RateLimitRPS < 0 || cfg.Server.SubmitPerMinute < 0 || cfg.Server.SubmitBurst < 0 {
		return nil, errors.New("server rate limits must not be negative")
	}
	if cfg.Chain.Difficulty < 0 || cfg.Chain.Difficulty > 64 {
		return nil, fmt.Errorf("chain.difficulty %d out of range [0, 64]", cfg.Chain.Difficulty)
	}
	return cfg, nil
}
