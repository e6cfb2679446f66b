package config

import (
	"github.com/spf13/viper"

	"tunnel-keeper/internal/env"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. "127.0.0.1:7070")
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" logs to stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Tunnel transport configuration
 * @property {string} command - Tunnel binary command template
 * @property {[]string} args - Argument templates, rendered with Protocol/Port
 * @property {string} process_name - Executable name used for identity checks
 * @property {string} endpoint_suffix - Public domain suffix assigned endpoints live under
 * @property {string} session_prefix - Session naming prefix, sessions are {prefix}-{port}
 * @property {int} max_tunnels - Concurrency cap on simultaneously live tunnels
 * @property {string} default_ttl - TTL applied when start omits one
 * @property {int} pid_wait_seconds - How long to wait for the session to report a PID
 * @property {int} endpoint_wait_seconds - How long to poll the log for the public endpoint
 */
type TunnelConfig struct {
	Command             string   `mapstructure:"command"`
	Args                []string `mapstructure:"args"`
	ProcessName         string   `mapstructure:"process_name"`
	EndpointSuffix      string   `mapstructure:"endpoint_suffix"`
	SessionPrefix       string   `mapstructure:"session_prefix"`
	MaxTunnels          int      `mapstructure:"max_tunnels"`
	DefaultTTL          string   `mapstructure:"default_ttl"`
	PidWaitSeconds      int      `mapstructure:"pid_wait_seconds"`
	EndpointWaitSeconds int      `mapstructure:"endpoint_wait_seconds"`
}

type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Tunnel TunnelConfig `mapstructure:"tunnel"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(env.KeeperDir)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:7070"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Tunnel.Command == "" {
		cfg.Tunnel.Command = "cloudflared"
	}
	if len(cfg.Tunnel.Args) == 0 {
		cfg.Tunnel.Args = []string{"tunnel", "--no-autoupdate", "--url", "{{.Protocol}}://localhost:{{.Port}}"}
	}
	if cfg.Tunnel.ProcessName == "" {
		cfg.Tunnel.ProcessName = "cloudflared"
	}
	if cfg.Tunnel.EndpointSuffix == "" {
		cfg.Tunnel.EndpointSuffix = "trycloudflare.com"
	}
	if cfg.Tunnel.SessionPrefix == "" {
		cfg.Tunnel.SessionPrefix = "cftun"
	}
	if cfg.Tunnel.MaxTunnels <= 0 {
		cfg.Tunnel.MaxTunnels = 5
	}
	if cfg.Tunnel.DefaultTTL == "" {
		cfg.Tunnel.DefaultTTL = "2h"
	}
	if cfg.Tunnel.PidWaitSeconds <= 0 {
		cfg.Tunnel.PidWaitSeconds = 4
	}
	if cfg.Tunnel.EndpointWaitSeconds <= 0 {
		cfg.Tunnel.EndpointWaitSeconds = 15
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
