package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"PaperCast/internal/domain"
	"PaperCast/internal/scanner"
)

const (
	// DefaultArxivAPIURL is the public arXiv query endpoint.
	DefaultArxivAPIURL = "https://export.arxiv.org/api/query"
	userAgent          = "PaperCast/1.0"
)

var fieldedQuery = regexp.MustCompile(`^[a-z]{2,4}:`)

// ArxivAPIScanner queries the arXiv Atom API sorted by submission date.
type ArxivAPIScanner struct {
	client  *http.Client
	baseURL string
}

// NewArxivAPIScanner wires an HTTP client and endpoint; both have defaults.
func NewArxivAPIScanner(client *http.Client, baseURL string) *ArxivAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultArxivAPIURL
	}
	return &ArxivAPIScanner{client: client, baseURL: baseURL}
}

// Name identifies the strategy inside the registry.
func (a *ArxivAPIScanner) Name() string {
	return "arxiv"
}

// Scan returns up to req.MaxResults entries matching req.Query, newest first.
func (a *ArxivAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("empty query for topic %s", req.Topic)
	}

	endpoint, err := buildSearchURL(a.baseURL, query, req.MaxResults)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		papers = append(papers, paperFromItem(item, req.Topic))
	}
	return papers, nil
}

func paperFromItem(item *gofeed.Item, topic string) domain.Paper {
	entryID := strings.TrimSpace(item.GUID)
	link := entryID
	if link == "" {
		link = strings.TrimSpace(item.Link)
	}

	authors := make([]string, 0, len(item.Authors))
	for _, person := range item.Authors {
		if person == nil || strings.TrimSpace(person.Name) == "" {
			continue
		}
		authors = append(authors, strings.TrimSpace(person.Name))
	}

	var published string
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC().Format("2006-01-02")
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC().Format("2006-01-02")
	}

	return domain.Paper{
		ID:            ShortID(link),
		URL:           link,
		Title:         item.Title,
		Abstract:      item.Description,
		Authors:       authors,
		PublishedDate: published,
		Query:         topic,
	}
}

// ShortID extracts the arXiv identifier from an abstract URL such as
// http://arxiv.org/abs/2501.00001v1 or http://arxiv.org/abs/hep-th/9901001v1.
func ShortID(entry string) string {
	entry = strings.TrimSpace(entry)
	if idx := strings.Index(entry, "/abs/"); idx >= 0 {
		return strings.Trim(entry[idx+len("/abs/"):], "/")
	}
	entry = strings.TrimPrefix(entry, "arXiv:")
	return strings.Trim(entry, "/")
}

func buildSearchURL(base, query string, maxResults int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", base, err)
	}

	if !fieldedQuery.MatchString(query) {
		query = fmt.Sprintf("all:%q", query)
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	values := parsed.Query()
	values.Set("search_query", query)
	values.Set("sortBy", "submittedDate")
	values.Set("sortOrder", "descending")
	values.Set("start", "0")
	values.Set("max_results", strconv.Itoa(maxResults))
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}
