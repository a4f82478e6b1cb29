// Package config loads optional bridge configuration: transport defaults and
// per-notifier default fields, from YAML files or the environment.
//
// Configuration is entirely optional; a zero-value bridge works without it.
// The typical use is keeping webhook URLs and tokens out of call sites:
//
//	http:
//	  timeout: 10s
//	  max_retries: 2
//	notifiers:
//	  wecom:
//	    webhook_url: https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=...
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/loonghao/notify-bridge-go/errors"
	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/schema"
)

const envPrefix = "NOTIFY_BRIDGE"

// Config holds bridge-level settings.
type Config struct {
	// HTTP supplies the transport defaults applied to every notifier the
	// bridge creates.
	HTTP httpclient.Config `mapstructure:"http"`

	// Notifiers maps a platform name to default request fields merged
	// under the caller's fields on every send to that platform.
	Notifiers map[string]schema.Fields `mapstructure:"notifiers"`
}

// Default returns a Config with transport defaults and no notifier entries.
func Default() *Config {
	return &Config{HTTP: httpclient.DefaultConfig()}
}

// Load reads a configuration file, layering NOTIFY_BRIDGE_* environment
// variables on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Newf("failed to read config %q: %s", path, err).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return FromViper(v)
}

// FromViper decodes and validates a Config from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Newf("invalid configuration: %s", err).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := cfg.HTTP.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
