package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// ChatOptions configures an OpenAI-compatible chat completions endpoint.
type ChatOptions struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	Instruction  string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
}

// ChatGPTClient implements ports.Enricher backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	instruction  string
	temperature  float32
	maxTokens    int
	httpClient   *http.Client
}

var _ ports.Enricher = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(opts ChatOptions) *ChatGPTClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatGPTClient{
		endpoint:     opts.Endpoint,
		model:        opts.Model,
		apiKey:       opts.APIKey,
		systemPrompt: opts.SystemPrompt,
		instruction:  opts.Instruction,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Enrich asks the model for a JSON object and decodes it.
func (c *ChatGPTClient) Enrich(ctx context.Context, title, abstract string) (domain.Enrichment, error) {
	if c == nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "chat enrich", errors.New("chatgpt client is nil"))
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Enrichment{}, domain.Fail(domain.ErrConfiguration, "chat enrich", errors.New("chatgpt client misconfigured"))
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: BuildPrompt(c.instruction, title, abstract) + "\n" + jsonContract},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "marshal chat payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "new request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "chat completion", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "chat completion",
			fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "decode completion", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "chat completion", errors.New("empty choices"))
	}

	out, err := decodeEnrichment(completion.Choices[0].Message.Content)
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "chat decode",
			fmt.Errorf("%w (finish reason %q)", err, completion.Choices[0].FinishReason))
	}
	return out, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You translate and explain research papers for a general audience."
	}
	return prompt
}
