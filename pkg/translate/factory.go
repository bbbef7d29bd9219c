package translate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ProviderType represents the translation provider to use.
type ProviderType string

const (
	// ProviderGoogle uses Google Cloud Translation.
	ProviderGoogle ProviderType = "google"
	// ProviderHuggingFace uses Hugging Face Inference models.
	ProviderHuggingFace ProviderType = "huggingface"
	// ProviderProxy uses a self-hosted Parlance API.
	ProviderProxy ProviderType = "proxy"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	// Provider specifies which translation provider to use.
	Provider ProviderType
	// APIKey authenticates Google requests.
	APIKey string
	// HFToken authenticates Hugging Face requests. Optional.
	HFToken string
	// BaseURL overrides the provider endpoint. For the proxy provider it is
	// the Parlance API base URL.
	BaseURL string
	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient replaces the default client when set.
	HTTPClient *http.Client
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewTranslator creates a new Translator instance based on the configuration.
// The provider is chosen once; there is no switching afterwards.
func NewTranslator(cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(cfg.Timeout)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
	}).Info("Creating translator instance")

	switch cfg.Provider {
	case ProviderGoogle:
		return NewGoogleClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient, cfg.Logger), nil
	case ProviderHuggingFace:
		return NewHuggingFaceClient(cfg.BaseURL, cfg.HFToken, cfg.HTTPClient, cfg.Logger), nil
	case ProviderProxy:
		return NewProxyClient(cfg.BaseURL, cfg.HTTPClient, cfg.Logger), nil
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"provider": cfg.Provider,
		}).Error("Unknown translation provider")
		return nil, fmt.Errorf("unknown translation provider: %s", cfg.Provider)
	}
}

// ParseProviderType parses a string into a ProviderType, ignoring case.
// "hf" is accepted for Hugging Face.
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google":
		return ProviderGoogle, nil
	case "huggingface", "hf":
		return ProviderHuggingFace, nil
	case "proxy":
		return ProviderProxy, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s (supported: google, huggingface, proxy)", s)
	}
}
