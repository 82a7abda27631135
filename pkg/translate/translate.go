package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"xlatorbot/pkg/config"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const fallbackAPIKeyEnv = "OPENAI_API_KEY"

const instructions = "You are a translation engine. Translate the user's message into the language " +
	"identified by the ISO 639-1 code %q. Reply with the translation only: no quotes, no notes, " +
	"no transliteration. Keep line breaks, names, URLs and emoji as they are."

var (
	// ErrMissingAPIKey is returned by New when no API key can be resolved.
	ErrMissingAPIKey = errors.New("translation api key is not set")
	// ErrEmptyTranslation is returned when the API answers without output text.
	ErrEmptyTranslation = errors.New("translation returned no text")
)

// Translator turns text into the target language.
type Translator interface {
	Translate(ctx context.Context, text string, lang string) (string, error)
	Health(ctx context.Context) error
}

// Client translates through the OpenAI Responses API.
type Client struct {
	client         osdk.Client
	model          string
	requestTimeout time.Duration
}

var _ Translator = (*Client)(nil)

func New(cfg config.TranslateConfig) (*Client, error) {
	apiKey := resolveAPIKey(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, keyEnvName(cfg.APIKeyEnv))
	}

	model, err := normalizeModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	// A failed translation is dropped, so the SDK must not resend it.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}

	return &Client{
		client:         osdk.NewClient(opts...),
		model:          model,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// Model reports the model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Translate asks the model to render text in lang and returns the trimmed answer.
func (c *Client) Translate(ctx context.Context, text string, lang string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := translateLogger().With("operation", "translate")
	startedAt := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text is required")
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "", errors.New("target language is required")
	}

	log.Debug("translation request started", "model", c.model, "lang", lang, "text_length", len(text))

	response, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        c.model,
		Instructions: osdk.String(fmt.Sprintf(instructions, lang)),
		Input:        responses.ResponseNewParamsInputUnion{OfString: osdk.String(text)},
	})
	if err != nil {
		log.Debug("translation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "status_code", StatusCode(err), "error", err)
		return "", fmt.Errorf("translate to %s: %w", lang, err)
	}

	translated := strings.TrimSpace(response.OutputText())
	if translated == "" {
		log.Debug("translation request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", ErrEmptyTranslation)
		return "", fmt.Errorf("translate to %s: %w", lang, ErrEmptyTranslation)
	}
	log.Debug("translation request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(translated))

	return translated, nil
}

// Health checks that the API accepts our credentials.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := translateLogger().With("operation", "health")
	startedAt := time.Now()

	if _, err := c.client.Models.List(ctx); err != nil {
		log.Debug("translation health check failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Debug("translation health check completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *osdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func translateLogger() *slog.Logger {
	return slog.Default().With("component", "translate")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func keyEnvName(apiKeyEnv string) string {
	if name := strings.TrimSpace(apiKeyEnv); name != "" {
		return name
	}
	return fallbackAPIKeyEnv
}

func resolveAPIKey(apiKeyEnv string) string {
	if name := strings.TrimSpace(apiKeyEnv); name != "" {
		if apiKey := strings.TrimSpace(os.Getenv(name)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv(fallbackAPIKeyEnv))
}

// normalizeModel accepts "model" or "openai/model".
func normalizeModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	providerID, modelID, found := strings.Cut(model, "/")
	if !found {
		return model, nil
	}

	providerID = strings.TrimSpace(providerID)
	modelID = strings.TrimSpace(modelID)
	if providerID == "" || modelID == "" {
		return "", fmt.Errorf("model %q is invalid", model)
	}
	if providerID != "openai" {
		return "", fmt.Errorf("model provider %q is not supported", providerID)
	}

	return modelID, nil
}
