package domain

import "time"

// Record is the persisted, append-only view of a processed paper.
type Record struct {
	Query         string   `json:"query"`
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"published_date"`
	Timestamp     string   `json:"timestamp"`
	TitleZh       string   `json:"title_zh"`
	SummaryZh     string   `json:"summary_zh"`
	Applications  []string `json:"applications"`
	Pitch         string   `json:"pitch"`
	Audio         string   `json:"audio"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// NewRecord composes a record from a paper, its enrichment and the stored audio path.
func NewRecord(p Paper, e Enrichment, audio string, at time.Time) Record {
	return Record{
		Query:         p.Query,
		ID:            p.ID,
		URL:           p.URL,
		Title:         p.Title,
		Summary:       p.Abstract,
		Authors:       append([]string(nil), p.Authors...),
		PublishedDate: p.PublishedDate,
		Timestamp:     at.Format(time.RFC3339),
		TitleZh:       e.Title,
		SummaryZh:     e.Summary,
		Applications:  append([]string(nil), e.Applications...),
		Pitch:         e.Pitch,
		Audio:         audio,
		Degraded:      e.Degraded,
	}
}

// ProcessedAt parses the record timestamp; the zero time is returned when it is malformed.
func (r Record) ProcessedAt() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
