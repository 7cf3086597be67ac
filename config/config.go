// Package config loads client configuration from a file and CIRCULAR_* environment
// variables.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
)

// EnvPrefix is prepended to every environment variable, e.g. CIRCULAR_GATEWAY_URL
const EnvPrefix = "CIRCULAR"

// Load reads the configuration. With an empty path, circular.yaml is looked up in the
// working directory and in ./config; a missing file is not an error there. Environment
// variables override file values, and unset values take their defaults.
func Load(path string) (types.Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("circular")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return types.Config{}, types.NewConfigError("failed to read config file", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, types.NewConfigError("unable to decode config", err)
	}

	cfg = cfg.WithDefaults()
	if err := utils.ValidateConfig(&cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// every key needs a default for AutomaticEnv to reach it during Unmarshal
func setDefaults(v *viper.Viper) {
	def := types.DefaultConfig()

	v.SetDefault("gateway_url", def.GatewayURL)
	v.SetDefault("access_key", "")
	v.SetDefault("version", def.Version)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("log_level", "")
	v.SetDefault("enable_metrics", false)
	v.SetDefault("allow_unsigned_registration", false)
}
