package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// maxPayloadChars bounds the serialized payload sent with a prompt.
const maxPayloadChars = 12000

// Request is one structured inference call.
type Request struct {
	// Task names the call in logs, e.g. "banking_refinement".
	Task       string
	Prompt     string
	Payload    any
	SchemaHint string
}

// Client talks to an OpenRouter-compatible chat-completions endpoint and decodes the
// model's answer as JSON. A nil *Client is valid and always reports ErrInferenceUnavailable.
type Client struct {
	apiKey string
	model  string
	url    string
	logger *utils.Logger
	client *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []Choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

// New returns nil when no API key is configured.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	if !cfg.InferenceEnabled() {
		return nil
	}
	return NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterURL, cfg.InferenceTimeout, logger)
}

func NewOpenRouterClient(apiKey, model, url string, timeout time.Duration, logger *utils.Logger) *Client {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		url:    url,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Infer sends the request and unmarshals the model's JSON answer into out.
// Every failure wraps utils.ErrInferenceUnavailable.
func (c *Client) Infer(ctx context.Context, req Request, out any) error {
	if c == nil || c.apiKey == "" {
		return utils.ErrInferenceUnavailable
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", req.Task, err, utils.ErrInferenceUnavailable)
	}

	content, err := c.complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("Inference call failed", "task", req.Task, "error", err)
		return fmt.Errorf("%s: %v: %w", req.Task, err, utils.ErrInferenceUnavailable)
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		// Models often wrap JSON in markdown fences or prose.
		if err := json.Unmarshal([]byte(extractJSON(content)), out); err != nil {
			c.logger.Warn("Failed to parse inference response", "task", req.Task, "content", content)
			return fmt.Errorf("%s: parse response: %v: %w", req.Task, err, utils.ErrInferenceUnavailable)
		}
	}

	return nil
}

func buildPrompt(req Request) (string, error) {
	var b strings.Builder
	b.WriteString(req.Prompt)

	if req.Payload != nil {
		payload, err := json.Marshal(req.Payload)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
		text := string(payload)
		if len(text) > maxPayloadChars {
			text = text[:maxPayloadChars] + "..."
		}
		b.WriteString("\n\nInput:\n")
		b.WriteString(text)
	}

	b.WriteString("\n\nRespond ONLY with a valid JSON object (no markdown, no code blocks)")
	if req.SchemaHint != "" {
		b.WriteString(" with the following structure:\n")
		b.WriteString(req.SchemaHint)
	} else {
		b.WriteString(".")
	}
	return b.String(), nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/BerylCAtieno/loan-intelligence-api")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("OpenRouter API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("OpenRouter API returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenRouter API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences, then falls back to the outermost JSON object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if nl := strings.IndexByte(content, '\n'); nl >= 0 {
			content = content[nl+1:]
		}
		if end := strings.LastIndex(content, "```"); end >= 0 {
			content = content[:end]
		}
		content = strings.TrimSpace(content)
	}

	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
