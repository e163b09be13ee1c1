package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ai-gateway/chat-gateway-go/internal/gateway"
	"github.com/ai-gateway/chat-gateway-go/internal/guardrails"
)

type Config struct {
	Address         string        `mapstructure:"address"`
	ProvidersPath   string        `mapstructure:"providers_path"`
	TelemetryURL    string        `mapstructure:"telemetry_url"`
	DatabaseURL     string        `mapstructure:"database_url"`
	Debug           bool          `mapstructure:"debug"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`

	// Each call site keeps its own defaults so the two paths cannot drift
	// through a shared constant.
	Chat   gateway.CallSettings  `mapstructure:"chat"`
	Probe  gateway.CallSettings  `mapstructure:"probe"`
	Health gateway.CheckSettings `mapstructure:"health"`

	Retry      gateway.RetryPolicy `mapstructure:"retry"`
	RateLimit  RateLimit           `mapstructure:"rate_limit"`
	Guardrails guardrails.Limits   `mapstructure:"guardrails"`

	// APIKeys maps provider id to its credential, read from the env var named
	// by the provider catalog.
	APIKeys map[string]string `mapstructure:"api_keys"`

	Providers []ProviderSpec `mapstructure:"-"`
}

// RateLimit caps upstream requests per provider. RPS <= 0 disables it.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8080")
	v.SetDefault("providers_path", "")
	v.SetDefault("telemetry_url", "")
	v.SetDefault("debug", false)
	v.SetDefault("upstream_timeout", 60*time.Second)

	v.SetDefault("chat.default_provider", "groq")
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.max_tokens", 2000)
	v.SetDefault("chat.strict_provider", false)

	v.SetDefault("probe.default_provider", "groq")
	v.SetDefault("probe.temperature", 0.7)
	v.SetDefault("probe.max_tokens", 100)
	v.SetDefault("probe.strict_provider", true)

	v.SetDefault("health.temperature", 0.7)
	v.SetDefault("health.max_tokens", 20)

	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("guardrails.max_messages", 100)
	v.SetDefault("guardrails.max_content_chars", 32000)
	v.SetDefault("guardrails.banned", []string{})
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	// allow environment variables like AIGW_ADDRESS
	v.SetEnvPrefix("AIGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_url", "AIGW_DATABASE_URL", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	providers, err := LoadCatalog(v.GetString("providers_path"))
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		if p.APIKeyEnv != "" {
			_ = v.BindEnv("api_keys."+p.ID, p.APIKeyEnv)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.Providers = providers
	return &c, nil
}
