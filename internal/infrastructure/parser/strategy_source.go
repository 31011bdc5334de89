package parser

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
	"PaperCast/internal/scanner"
)

// SourceOptions tunes how many entries are scanned and how often upstream is hit.
type SourceOptions struct {
	MaxResults  int
	MinInterval time.Duration
}

// StrategySource implements PaperSource via registered scanner strategies.
type StrategySource struct {
	registry   *scanner.Registry
	validator  *domain.Validator
	sanitizer  *bluemonday.Policy
	limiter    *rate.Limiter
	maxResults int
	logger     *slog.Logger
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with candidate validation and throttling.
func NewStrategySource(reg *scanner.Registry, validator *domain.Validator, opts SourceOptions, log *slog.Logger) *StrategySource {
	var limiter *rate.Limiter
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &StrategySource{
		registry:   reg,
		validator:  validator,
		sanitizer:  bluemonday.StrictPolicy(),
		limiter:    limiter,
		maxResults: opts.MaxResults,
		logger:     log,
	}
}

// Fetch scans the topic and returns the first limit valid candidates not in exclude.
// limit <= 0 returns every unseen candidate.
func (s *StrategySource) Fetch(ctx context.Context, topic domain.Topic, limit int, exclude domain.IDSet) ([]domain.Paper, error) {
	if s.registry == nil {
		return nil, domain.Fail(domain.ErrFetch, "fetch", fmt.Errorf("scanner registry is not configured"))
	}

	strategy, err := s.registry.Resolve(topic.Scanner)
	if err != nil {
		return nil, domain.Fail(domain.ErrFetch, "topic "+topic.Name, err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, domain.Fail(domain.ErrFetch, "topic "+topic.Name, fmt.Errorf("wait for rate limit: %w", err))
		}
	}

	s.debug("scan topic", "topic", topic.Name, "scanner", topic.Scanner, "query", topic.SearchTerm())
	results, err := strategy.Scan(ctx, scanner.Request{
		Topic:      topic.Name,
		Query:      topic.SearchTerm(),
		MaxResults: s.maxResults,
	})
	if err != nil {
		return nil, domain.Fail(domain.ErrFetch, "scan topic "+topic.Name, err)
	}

	picked := make([]domain.Paper, 0, max(limit, 0))
	batch := domain.NewIDSet()
	for _, paper := range results {
		paper = s.clean(paper)
		if paper.Query == "" {
			paper.Query = topic.Name
		}

		if s.validator != nil {
			if err := s.validator.Paper(paper); err != nil {
				s.warn("drop invalid candidate", "topic", topic.Name, "error", err)
				continue
			}
		}
		if exclude.Has(paper.ID) || batch.Has(paper.ID) {
			continue
		}

		batch.Add(paper.ID)
		picked = append(picked, paper)
		if limit > 0 && len(picked) >= limit {
			break
		}
	}

	s.debug("topic produced candidates", "topic", topic.Name, "scanned", len(results), "picked", len(picked))
	return picked, nil
}

func (s *StrategySource) clean(p domain.Paper) domain.Paper {
	p.ID = strings.TrimSpace(p.ID)
	p.URL = strings.TrimSpace(p.URL)
	p.Title = s.sanitize(p.Title)
	p.Abstract = s.sanitize(p.Abstract)
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a = s.sanitize(a); a != "" {
			authors = append(authors, a)
		}
	}
	p.Authors = authors
	return p
}

// sanitize strips markup and collapses whitespace, including the line wraps arXiv puts in titles.
func (s *StrategySource) sanitize(text string) string {
	text = html.UnescapeString(s.sanitizer.Sanitize(text))
	return strings.Join(strings.Fields(text), " ")
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
