package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/konteragroup/kontera/internal/common"
)

// openaiClient implements the Client interface for the OpenAI API.
type openaiClient struct {
	httpClient  *http.Client
	limiter     *rateLimiter
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 400
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openaiClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// ClassifyPage sends a vision request asking whether the page begins a new document.
func (c *openaiClient) ClassifyPage(ctx context.Context, req PageRequest) (PageClassification, error) {
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(req.Image))

	content := []map[string]any{
		{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL},
		},
		{
			"type": "text",
			"text": buildPagePrompt(req.PageNumber, req.PreviousType),
		},
	}

	text, err := c.complete(ctx, "You classify scanned document pages. Respond only with the requested JSON object.", content)
	if err != nil {
		return PageClassification{}, err
	}

	result, ok := ParsePageClassification(text)
	if !ok {
		return PageClassification{}, fmt.Errorf("%w: %q", common.ErrUnparsableResponse, truncate(text, 200))
	}

	return result, nil
}

// InferAccount sends a text request asking for a GL account suggestion.
func (c *openaiClient) InferAccount(ctx context.Context, req AccountRequest) (AccountInference, error) {
	content := []map[string]any{
		{
			"type": "text",
			"text": buildAccountPrompt(req),
		},
	}

	text, err := c.complete(ctx, "You assign general-ledger accounts. Respond only with the requested JSON object.", content)
	if err != nil {
		return AccountInference{}, err
	}

	result, ok := ParseAccountInference(text)
	if !ok {
		return AccountInference{}, fmt.Errorf("%w: %q", common.ErrUnparsableResponse, truncate(text, 200))
	}

	return result, nil
}

// complete performs one chat completions call and returns the text content.
func (c *openaiClient) complete(ctx context.Context, systemPrompt string, content []map[string]any) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}

	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": content,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", common.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, truncate(string(body), 300))
	}

	var response openaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return response.Choices[0].Message.Content, nil
}

// openaiResponse represents the OpenAI API response structure.
type openaiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
