package tts

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// GeminiOptions configures Gemini speech synthesis.
type GeminiOptions struct {
	APIKey        string
	Model         string
	Voice         string
	LanguageCode  string
	Format        PCMFormat
	MinAudioBytes int
	BaseURL       string
	HTTPClient    *http.Client
}

// GeminiSynthesizer implements ports.Synthesizer with a Gemini TTS model and returns WAV bytes.
type GeminiSynthesizer struct {
	client   *genai.Client
	model    string
	format   PCMFormat
	minBytes int
	config   *genai.GenerateContentConfig
}

var _ ports.Synthesizer = (*GeminiSynthesizer)(nil)

// NewGeminiSynthesizer builds the client once.
func NewGeminiSynthesizer(ctx context.Context, opts GeminiOptions) (*GeminiSynthesizer, error) {
	if opts.APIKey == "" {
		return nil, domain.Fail(domain.ErrConfiguration, "gemini synthesizer", errors.New("api key is empty"))
	}
	if opts.Format == (PCMFormat{}) {
		opts.Format = DefaultPCMFormat()
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

	return &GeminiSynthesizer{
		client:   client,
		model:    opts.Model,
		format:   opts.Format,
		minBytes: opts.MinAudioBytes,
		config: &genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				LanguageCode: opts.LanguageCode,
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: opts.Voice},
				},
			},
		},
	}, nil
}

// Synthesize speaks text and returns a WAV file.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.Fail(domain.ErrSynthesis, "gemini tts", errors.New("empty narration"))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), g.config)
	if err != nil {
		return nil, domain.Fail(domain.ErrSynthesis, "gemini tts", err)
	}

	blob := firstAudio(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, domain.Fail(domain.ErrSynthesis, "gemini tts", errors.New("no audio in response"))
	}

	audio := blob.Data
	if !isWAV(audio) {
		audio, err = EncodeWAV(blob.Data, formatFromMIME(blob.MIMEType, g.format))
		if err != nil {
			return nil, domain.Fail(domain.ErrSynthesis, "wrap pcm", err)
		}
	}

	if err := CheckSize(audio, g.minBytes); err != nil {
		return nil, err
	}
	return audio, nil
}

// CheckSize rejects payloads too small to hold meaningful speech.
func CheckSize(audio []byte, minBytes int) error {
	if len(audio) < minBytes {
		return domain.Fail(domain.ErrSynthesis, "check audio",
			fmt.Errorf("audio is %d bytes, want at least %d", len(audio), minBytes))
	}
	return nil
}

func firstAudio(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// formatFromMIME reads the rate parameter of e.g. "audio/L16;codec=pcm;rate=24000".
func formatFromMIME(mimeType string, fallback PCMFormat) PCMFormat {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return fallback
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		fallback.SampleRate = rate
	}
	return fallback
}
