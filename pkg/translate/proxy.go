package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dasmlab/parlance/pkg/api"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultProxyURL is the default base URL of a self-hosted Parlance API.
const DefaultProxyURL = "http://localhost:8000"

// ProxyClient implements the Translator interface against a self-hosted
// Parlance server, which in turn talks to the real provider.
type ProxyClient struct {
	baseURL string
	rest    *resty.Client
	logger  *logrus.Logger
}

// NewProxyClient creates a new proxy client.
// baseURL should point to a Parlance server (default: http://localhost:8000).
func NewProxyClient(baseURL string, httpClient *http.Client, logger *logrus.Logger) *ProxyClient {
	if baseURL == "" {
		baseURL = DefaultProxyURL
	}
	if httpClient == nil {
		httpClient = newHTTPClient(DefaultTimeout)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &ProxyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    resty.NewWithClient(httpClient),
		logger:  logger,
	}
}

// BaseURL returns the API base URL this client talks to.
func (c *ProxyClient) BaseURL() string {
	return c.baseURL
}

// DetectLanguage detects the language of text.
func (c *ProxyClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	var out api.DetectResponse
	if err := c.post(ctx, "Detect", "/detect", api.DetectRequest{Text: text}, &out); err != nil {
		return "", err
	}
	return out.DetectedLanguage, nil
}

// Translate translates text from source language to target language.
func (c *ProxyClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := c.TranslateDetailed(ctx, api.TranslateRequest{
		Text:   text,
		Target: targetLang,
		Source: sourceLang,
	})
	if err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

// TranslateDetailed is Translate returning the server's full response,
// including the source language it settled on and the provider it used.
func (c *ProxyClient) TranslateDetailed(ctx context.Context, req api.TranslateRequest) (api.TranslateResponse, error) {
	var out api.TranslateResponse
	err := c.post(ctx, "Translate", "/translate", req, &out)
	return out, err
}

func (c *ProxyClient) post(ctx context.Context, op, path string, payload, out any) error {
	url := c.baseURL + path
	c.logger.WithFields(logrus.Fields{
		"url": url,
	}).Debug("Calling Parlance API")

	startTime := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url": url,
		}).Error("Proxy request failed")
		return fmt.Errorf("request failed: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Proxy request completed")

	if !isSuccess(resp.StatusCode()) {
		detail := readDetail(bytes.NewReader(resp.Body()))
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode(),
			"detail":      detail,
		}).Error("Proxy request returned non-OK status")
		return newTransportError(op, resp.StatusCode(), detail)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		c.logger.WithError(err).Error("Failed to decode proxy response")
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

func (c *ProxyClient) get(ctx context.Context, path string, out any) error {
	resp, err := c.rest.R().SetContext(ctx).Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !isSuccess(resp.StatusCode()) {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CheckHealth calls GET / on the proxy and expects status "ok".
func (c *ProxyClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking proxy health")

	var health api.HealthResponse
	if err := c.get(ctx, "/", &health); err != nil {
		c.logger.WithError(err).Error("Proxy health check failed")
		return fmt.Errorf("health check failed: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("health check failed: status %q", health.Status)
	}

	c.logger.WithFields(logrus.Fields{
		"upstream_provider": health.Provider,
	}).Debug("Proxy health check passed")
	return nil
}

// SupportedLanguages fetches GET /languages from the proxy.
func (c *ProxyClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	var langs api.LanguagesResponse
	if err := c.get(ctx, "/languages", &langs); err != nil {
		c.logger.WithError(err).Error("Failed to fetch supported languages")
		return nil, err
	}

	codes := make([]string, 0, len(langs.Languages))
	for _, l := range langs.Languages {
		codes = append(codes, l.Code)
	}
	return codes, nil
}
