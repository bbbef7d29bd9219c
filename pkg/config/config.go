// Package config loads server configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dasmlab/parlance/pkg/translate"
	"gopkg.in/yaml.v3"
)

// Config holds every startup setting. It is read-only once the server runs.
type Config struct {
	Provider      string `yaml:"provider"`
	GoogleAPIKey  string `yaml:"google_api_key"`
	HFToken       string `yaml:"hf_token"`
	APIBaseURL    string `yaml:"api_base_url"`
	GoogleBaseURL string `yaml:"google_base_url"`
	HFBaseURL     string `yaml:"hf_base_url"`

	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	GRPCPort    int      `yaml:"grpc_port"`
	CORSOrigins []string `yaml:"cors_origins"`

	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:       string(translate.ProviderHuggingFace),
		APIBaseURL:     translate.DefaultProxyURL,
		GoogleBaseURL:  translate.DefaultGoogleURL,
		HFBaseURL:      translate.DefaultHuggingFaceURL,
		Host:           "0.0.0.0",
		Port:           8000,
		GRPCPort:       50051,
		CORSOrigins:    []string{"http://localhost:5173"},
		LogLevel:       "info",
		RequestTimeout: translate.DefaultTimeout,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str("TRANSLATION_PROVIDER", &c.Provider)
	str("GOOGLE_API_KEY", &c.GoogleAPIKey)
	str("HF_TOKEN", &c.HFToken)
	str("API_BASE_URL", &c.APIBaseURL)
	str("GOOGLE_BASE_URL", &c.GoogleBaseURL)
	str("HF_BASE_URL", &c.HFBaseURL)
	str("HOST", &c.Host)
	str("LOG_LEVEL", &c.LogLevel)

	if err := num("PORT", &c.Port); err != nil {
		return err
	}
	if err := num("GRPC_PORT", &c.GRPCPort); err != nil {
		return err
	}

	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings that would otherwise fail at request time.
func (c Config) Validate() error {
	var errs []error
	if _, err := translate.ParseProviderType(c.Provider); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid grpc port %d", c.GRPCPort))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid request timeout %s", c.RequestTimeout))
	}
	return errors.Join(errs...)
}

// TranslatorConfig converts the settings into a translate.Config for the
// configured provider. The base URL is the one matching that provider.
func (c Config) TranslatorConfig() (translate.Config, error) {
	provider, err := translate.ParseProviderType(c.Provider)
	if err != nil {
		return translate.Config{}, err
	}

	tc := translate.Config{
		Provider: provider,
		APIKey:   c.GoogleAPIKey,
		HFToken:  c.HFToken,
		Timeout:  c.RequestTimeout,
	}
	switch provider {
	case translate.ProviderGoogle:
		tc.BaseURL = c.GoogleBaseURL
	case translate.ProviderHuggingFace:
		tc.BaseURL = c.HFBaseURL
	case translate.ProviderProxy:
		tc.BaseURL = c.APIBaseURL
	}
	return tc, nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
