package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// GeminiOptions configures the Gemini enrichment client.
type GeminiOptions struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Instruction     string
	Applications    int
	BaseURL         string
	HTTPClient      *http.Client
}

// GeminiEnricher implements ports.Enricher with Gemini structured output.
type GeminiEnricher struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	prompt string
}

var _ ports.Enricher = (*GeminiEnricher)(nil)

// NewGeminiEnricher builds the client once; it is reused for every paper.
func NewGeminiEnricher(ctx context.Context, opts GeminiOptions) (*GeminiEnricher, error) {
	if opts.APIKey == "" {
		return nil, domain.Fail(domain.ErrConfiguration, "gemini enricher", errors.New("api key is empty"))
	}
	if opts.Applications <= 0 {
		opts.Applications = 3
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, domain.Fail(domain.ErrConfiguration, "create gemini client", err)
	}

	return &GeminiEnricher{
		client: client,
		model:  opts.Model,
		prompt: opts.Instruction,
		config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(opts.Temperature),
			MaxOutputTokens:  opts.MaxOutputTokens,
			ResponseMIMEType: "application/json",
			ResponseSchema:   enrichmentSchema(opts.Applications),
		},
	}, nil
}

// Enrich sends one paper and decodes the structured reply. Validation is left to the caller.
func (g *GeminiEnricher) Enrich(ctx context.Context, title, abstract string) (domain.Enrichment, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(g.prompt, title, abstract)), g.config)
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "gemini generate", err)
	}

	text := resp.Text()
	if text == "" {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "gemini generate", fmt.Errorf("no text in response%s", blockReason(resp)))
	}

	out, err := decodeEnrichment(text)
	if err != nil {
		return domain.Enrichment{}, domain.Fail(domain.ErrEnrichment, "gemini decode", err)
	}
	return out, nil
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf(" (blocked: %s)", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		return fmt.Sprintf(" (finish reason: %s)", resp.Candidates[0].FinishReason)
	}
	return ""
}

func enrichmentSchema(applications int) *genai.Schema {
	n := int64(applications)
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title_zh":   {Type: genai.TypeString, Description: "Translated title"},
			"summary_zh": {Type: genai.TypeString, Description: "Condensed narration-ready summary"},
			"applications": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    genai.Ptr(n),
				MaxItems:    genai.Ptr(n),
				Description: "Everyday application scenarios",
			},
			"pitch": {Type: genai.TypeString, Description: "Investor pitch"},
		},
		Required:         []string{"title_zh", "summary_zh", "applications", "pitch"},
		PropertyOrdering: []string{"title_zh", "summary_zh", "applications", "pitch"},
	}
}
