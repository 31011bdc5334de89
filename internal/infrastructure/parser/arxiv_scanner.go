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

	"github.com/PuerkitoBio/goquery"

	"PaperCast/internal/domain"
	"PaperCast/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivListingScanner walks arXiv category listing pages (e.g. /list/cs.AI/recent).
type ArxivListingScanner struct {
	client   *http.Client
	pageSize int
	now      func() time.Time
}

// NewArxivListingScanner wires an HTTP client; pageSize defaults to 50.
func NewArxivListingScanner(client *http.Client) *ArxivListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivListingScanner{client: client, pageSize: 50, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (a *ArxivListingScanner) Name() string {
	return "arxiv-listing"
}

// Scan pages through the listing at req.Query until MaxResults entries are collected
// or the listing runs out.
func (a *ArxivListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("no listing url provided for topic %s", req.Topic)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = a.pageSize
	}

	results := make([]domain.Paper, 0, maxResults)
	seen := map[string]struct{}{}

	skip := 0
	for len(results) < maxResults {
		pageURL, err := buildPageURL(req.Query, skip, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", req.Topic, err)
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", req.Topic, err)
		}

		pagePapers, processed := a.extractPapers(doc, req.Topic)
		for _, paper := range pagePapers {
			if _, ok := seen[paper.ID]; ok {
				continue
			}
			seen[paper.ID] = struct{}{}
			results = append(results, paper)
			if len(results) == maxResults {
				break
			}
		}

		if processed < a.pageSize {
			break
		}
		skip += a.pageSize
	}

	return results, nil
}

func (a *ArxivListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivListingScanner) extractPapers(doc *goquery.Document, topic string) ([]domain.Paper, int) {
	var (
		collected []domain.Paper
		processed int
	)

	doc.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		processed++
		collected = append(collected, parseEntry(dt, dt.Next(), topic, a.now()))
	})

	return collected, processed
}

func parseEntry(dt, dd *goquery.Selection, topic string, fallbackDay time.Time) domain.Paper {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	id := ShortID(strings.TrimSpace(link.Text()))
	if id == "" {
		id = ShortID(href)
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimPrefix(title, "Title:")
	title = strings.TrimSpace(title)

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:")
	summary = strings.TrimSpace(summary)

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := fallbackDay.UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	return domain.Paper{
		ID:            id,
		URL:           href,
		Title:         title,
		Abstract:      summary,
		Authors:       authors,
		PublishedDate: publishedAt.Format("2006-01-02"),
		Query:         topic,
	}
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
