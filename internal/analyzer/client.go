package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scriptreview/internal/logging"
)

// Provider selects the request/response shape spoken by a Client.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

var defaultBaseURLs = map[Provider]string{
	ProviderAnthropic: "https://api.anthropic.com",
	ProviderOpenAI:    "https://api.openai.com",
	ProviderGemini:    "https://generativelanguage.googleapis.com",
}

const (
	defaultMaxTokens   = 4096
	anthropicVersion   = "2023-06-01"
	maxErrorBodyLength = 512
)

// Client is an HTTP Analyzer for one model on one provider.
type Client struct {
	name       string
	provider   Provider
	model      string
	baseURL    string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
	baseURL    string
	maxTokens  int
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("analyzer: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithBaseURL points the client at a proxy or compatible server.
func WithBaseURL(u string) Option {
	return func(cfg *clientConfig) error {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("analyzer: base url: %w", err)
		}
		cfg.baseURL = strings.TrimSuffix(u, "/")
		return nil
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) Option {
	return func(cfg *clientConfig) error {
		cfg.maxTokens = n
		return nil
	}
}

// New creates a Client named name that calls model on provider.
func New(name string, provider Provider, model, apiKey string, opts ...Option) (*Client, error) {
	if name == "" {
		return nil, fmt.Errorf("analyzer: name is required")
	}
	if model == "" {
		return nil, fmt.Errorf("analyzer %s: model is required", name)
	}
	base, ok := defaultBaseURLs[provider]
	if !ok {
		return nil, fmt.Errorf("analyzer %s: unknown provider %q", name, provider)
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{}
	if cfg.httpClient != nil {
		// Copy so a client shared across analyzers keeps its own timeout.
		c := *cfg.httpClient
		httpClient = &c
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}
	if cfg.baseURL != "" {
		base = cfg.baseURL
	}
	maxTokens := cfg.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	logger := cfg.logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		name:       name,
		provider:   provider,
		model:      model,
		baseURL:    base,
		apiKey:     apiKey,
		maxTokens:  maxTokens,
		httpClient: httpClient,
		logger:     logger.With(slog.String("analyzer", name)),
	}, nil
}

func (c *Client) Name() string { return c.name }

// Invoke sends one system+user exchange and returns the model text.
func (c *Client) Invoke(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	var (
		text string
		err  error
	)
	switch c.provider {
	case ProviderAnthropic:
		text, err = c.invokeAnthropic(ctx, system, prompt)
	case ProviderOpenAI:
		text, err = c.invokeOpenAI(ctx, system, prompt)
	case ProviderGemini:
		text, err = c.invokeGemini(ctx, system, prompt)
	default:
		err = fmt.Errorf("analyzer %s: unknown provider %q", c.name, c.provider)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "invoke failed", "elapsed", time.Since(start), "error", err)
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrEmptyResponse)
	}
	c.logger.DebugContext(ctx, "invoke complete", "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}

// --- Anthropic messages API ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) invokeAnthropic(ctx context.Context, system, prompt string) (string, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var resp anthropicResponse
	if err := c.doJSON(ctx, c.baseURL+"/v1/messages", headers, body, &resp); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// --- OpenAI chat completions API ---

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) invokeOpenAI(ctx context.Context, system, prompt string) (string, error) {
	body := openAIRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var resp openAIResponse
	if err := c.doJSON(ctx, c.baseURL+"/v1/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// --- Gemini generateContent API ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) invokeGemini(ctx context.Context, system, prompt string) (string, error) {
	var body geminiRequest
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	body.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.MaxOutputTokens = c.maxTokens

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	var resp geminiResponse
	if err := c.doJSON(ctx, u, headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// doJSON posts body and decodes the JSON response into dst. Non-2xx
// responses become *APIError.
func (c *Client) doJSON(ctx context.Context, u string, headers map[string]string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.DebugContext(ctx, "API request", "provider", c.provider, "model", c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Analyzer: c.name, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}
