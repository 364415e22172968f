/*
 *	devbridge exposes host device capabilities over method channels.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package config loads the devbridged configuration from a YAML
// file, environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.arsenm.dev/devbridge/codec"
	"go.arsenm.dev/devbridge/profile"
)

// Permission policies
const (
	PolicyPrompt = "prompt"
	PolicyGrant  = "grant"
	PolicyDeny   = "deny"
	PolicyManual = "manual"
)

// Config is the root configuration
type Config struct {
	Listen      ListenConfig      `mapstructure:"listen"`
	Codec       string            `mapstructure:"codec"`
	Profiles    []string          `mapstructure:"profiles"`
	Device      DeviceConfig      `mapstructure:"device"`
	Downloads   DownloadsConfig   `mapstructure:"downloads"`
	Host        HostConfig        `mapstructure:"host"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Log         LogConfig         `mapstructure:"log"`
}

// ListenConfig holds the listen addresses. An empty address
// disables that listener.
type ListenConfig struct {
	// TCP serves the codec stream directly
	TCP string `mapstructure:"tcp"`
	// HTTP serves the JSON call endpoint and the WebSocket stream
	HTTP string `mapstructure:"http"`
}

type DeviceConfig struct {
	// Manufacturer overrides the detected hardware vendor
	Manufacturer string `mapstructure:"manufacturer"`
}

type DownloadsConfig struct {
	Dir string `mapstructure:"dir"`
}

// HostConfig points the host platform at alternate sysfs and
// procfs roots
type HostConfig struct {
	SysRoot  string `mapstructure:"sys_root"`
	ProcRoot string `mapstructure:"proc_root"`
}

// PermissionsConfig controls how permission requests are answered
type PermissionsConfig struct {
	// Policy: prompt, grant, deny or manual
	Policy string `mapstructure:"policy"`
	// Granted lists permissions granted at startup
	Granted                  []string `mapstructure:"granted"`
	RequireNearbyWifiDevices bool     `mapstructure:"require_nearby_wifi_devices"`
}

// LogConfig defines logger settings
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls rotation of file outputs
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			TCP:  "127.0.0.1:9797",
			HTTP: "127.0.0.1:9798",
		},
		Codec:    "msgpack",
		Profiles: profile.Names(),
		Permissions: PermissionsConfig{
			Policy: PolicyPrompt,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/devbridge.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads the configuration from path, or if path is empty, from
// $DEVBRIDGE_CONFIG or a devbridge.yaml found in the working directory,
// ./configs or ~/.devbridge. A missing file is not an error. Environment
// variables prefixed with DEVBRIDGE_ override file values, with `.` and
// `-` replaced by `_`, for example DEVBRIDGE_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DEVBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Env only configs need every key to be known
	v.SetDefault("listen.tcp", cfg.Listen.TCP)
	v.SetDefault("listen.http", cfg.Listen.HTTP)
	v.SetDefault("codec", cfg.Codec)
	v.SetDefault("profiles", cfg.Profiles)
	v.SetDefault("device.manufacturer", cfg.Device.Manufacturer)
	v.SetDefault("downloads.dir", cfg.Downloads.Dir)
	v.SetDefault("host.sys_root", cfg.Host.SysRoot)
	v.SetDefault("host.proc_root", cfg.Host.ProcRoot)
	v.SetDefault("permissions.policy", cfg.Permissions.Policy)
	v.SetDefault("permissions.granted", cfg.Permissions.Granted)
	v.SetDefault("permissions.require_nearby_wifi_devices", cfg.Permissions.RequireNearbyWifiDevices)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		path = os.Getenv("DEVBRIDGE_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("devbridge")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".devbridge"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Decode into a zero value, as slices decoded over
	// non-empty defaults would keep trailing default entries
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration and rejects invalid values
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Codec = strings.ToLower(strings.TrimSpace(c.Codec))
	if _, err := codec.ByName(c.Codec); err != nil {
		return fmt.Errorf("invalid codec: %w", err)
	}

	c.Permissions.Policy = strings.ToLower(strings.TrimSpace(c.Permissions.Policy))
	switch c.Permissions.Policy {
	case "":
		c.Permissions.Policy = PolicyPrompt
	case PolicyPrompt, PolicyGrant, PolicyDeny, PolicyManual:
	default:
		return fmt.Errorf("invalid permissions.policy: %q", c.Permissions.Policy)
	}

	if len(c.Profiles) == 0 {
		return errors.New("no profiles configured")
	}
	for _, name := range c.Profiles {
		if !profile.Valid(name) {
			return fmt.Errorf("invalid profile %q, expected one of %s", name, strings.Join(profile.Names(), ", "))
		}
	}

	if c.Listen.TCP == "" && c.Listen.HTTP == "" {
		return errors.New("no listen address configured")
	}
	return nil
}
