package ports

import (
	"context"
	"time"

	"PaperCast/internal/domain"
)

// PaperSource returns up to limit unseen candidates for a topic, newest first.
type PaperSource interface {
	Fetch(ctx context.Context, topic domain.Topic, limit int, exclude domain.IDSet) ([]domain.Paper, error)
}

// Enricher translates and enriches a paper abstract.
type Enricher interface {
	Enrich(ctx context.Context, title, abstract string) (domain.Enrichment, error)
}

// Synthesizer turns narration text into playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ProcessedStore persists the deduplication set.
type ProcessedStore interface {
	Load(ctx context.Context) (domain.IDSet, error)
	Save(ctx context.Context, ids domain.IDSet) error
}

// RecordLog is the append-only record dataset.
type RecordLog interface {
	Append(ctx context.Context, record domain.Record) error
	LoadAll(ctx context.Context, limit int) ([]domain.Record, error)
	IDs(ctx context.Context) (domain.IDSet, error)
}

// AudioStore keeps synthesized audio and returns its web-relative path.
type AudioStore interface {
	Save(ctx context.Context, id string, audio []byte) (string, error)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
