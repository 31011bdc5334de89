package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

const maxAudioBytes = 64 << 20

// HTTPSynthesizer talks to a self-hosted speech service that returns audio bytes.
type HTTPSynthesizer struct {
	endpoint string
	apiKey   string
	voice    string
	minBytes int
	http     *http.Client
}

var _ ports.Synthesizer = (*HTTPSynthesizer)(nil)

// NewHTTPSynthesizer creates a reusable HTTP client.
func NewHTTPSynthesizer(endpoint, apiKey, voice string, minBytes int, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPSynthesizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		voice:    voice,
		minBytes: minBytes,
		http:     &http.Client{Timeout: timeout},
	}
}

// Synthesize posts the narration and returns the response body.
func (c *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"text":  text,
		"voice": c.voice,
	})
	if err != nil {
		return nil, domain.Fail(domain.ErrSynthesis, "marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Fail(domain.ErrSynthesis, "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav, audio/*")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Fail(domain.ErrSynthesis, "do request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.Fail(domain.ErrSynthesis, "tts service",
			fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, domain.Fail(domain.ErrSynthesis, "read audio", err)
	}

	if err := CheckSize(audio, c.minBytes); err != nil {
		return nil, err
	}
	return audio, nil
}
