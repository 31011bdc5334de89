package telegram

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

const (
	defaultAPIURL = "https://api.telegram.org"
	maxMessageLen = 4096
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiURL uses the public bot API.
func NewNotifier(apiURL, botToken, chatID string) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest posts an HTML message to Telegram.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", digest)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

// Digest renders the records of one run as a Telegram HTML message. It returns "" when there is nothing to announce.
func Digest(records []domain.Record, stats domain.RunStats) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>PaperCast</b>: %d new paper(s)\n", len(records))
	for _, r := range records {
		title := r.TitleZh
		if title == "" {
			title = r.Title
		}
		entry := fmt.Sprintf("\n<b>[%s]</b> <a href=\"%s\">%s</a>\n%s\n",
			html.EscapeString(r.Query), html.EscapeString(r.URL), html.EscapeString(title), html.EscapeString(r.Pitch))
		if b.Len()+len(entry) > maxMessageLen-64 {
			b.WriteString("\n…")
			break
		}
		b.WriteString(entry)
	}
	if stats.SynthesisFailures > 0 || stats.TopicsFailed > 0 {
		fmt.Fprintf(&b, "\nskipped: %d synthesis, %d topic(s) failed", stats.SynthesisFailures, stats.TopicsFailed)
	}
	return b.String()
}
