package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/haforge/autogen/internal/httpkit"
)

// OllamaBackend talks to a local Ollama server.
type OllamaBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaBackend creates an Ollama backend. baseURL defaults to the
// standard local port.
func NewOllamaBackend(baseURL, model string, logger *slog.Logger) *OllamaBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaBackend{
		baseURL: baseURL,
		model:   model,
		httpClient: httpkit.NewClient(
			// Review prompts over large automation sets take a while on
			// local models.
			httpkit.WithTimeout(5*time.Minute),
			httpkit.WithLogger(logger),
		),
		logger: logger,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Generate sends a non-streaming chat request to /api/chat.
func (b *OllamaBackend) Generate(ctx context.Context, systemPrompt, userPrompt string) (*Response, error) {
	reqBody := ollamaChatRequest{
		Model: b.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Response{
		Content:          chatResp.Message.Content,
		Model:            chatResp.Model,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}

// HealthCheck reports whether the Ollama server answers on its root URL.
func (b *OllamaBackend) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/", nil)
	if err != nil {
		return false
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		b.logger.Debug("ollama health check failed", "error", err)
		return false
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	return resp.StatusCode == http.StatusOK
}
