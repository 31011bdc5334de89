package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PaperCast/internal/domain"
	"PaperCast/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source      ports.PaperSource
	Enricher    ports.Enricher
	Synthesizer ports.Synthesizer
	Processed   ports.ProcessedStore
	Records     ports.RecordLog
	Audio       ports.AudioStore
	Validator   *domain.Validator
	Logger      *slog.Logger
	Clock       func() time.Time
}

// PipelineOptions carries the run policy.
type PipelineOptions struct {
	Topics         []domain.Topic
	NewPerTopic    int
	EnrichRetry    RetryPolicy
	SynthesisRetry RetryPolicy
	Fallback       domain.FallbackText
	Narration      domain.NarrationStyle
}

// Report summarises one run.
type Report struct {
	RunID   string
	Stats   domain.RunStats
	Records []domain.Record
}

// Pipeline implements the fetch, enrich, synthesize and persist workflow.
type Pipeline struct {
	source      ports.PaperSource
	enricher    ports.Enricher
	synthesizer ports.Synthesizer
	processed   ports.ProcessedStore
	records     ports.RecordLog
	audio       ports.AudioStore
	validator   *domain.Validator
	logger      *slog.Logger
	clock       func() time.Time
	opts        PipelineOptions
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if deps.Validator == nil {
		deps.Validator = domain.NewValidator(domain.DefaultRules())
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if opts.NewPerTopic <= 0 {
		opts.NewPerTopic = 1
	}
	if opts.Fallback == (domain.FallbackText{}) {
		opts.Fallback = domain.DefaultFallbackText()
	}
	if opts.Narration.ApplicationsLead == "" && len(opts.Narration.Ordinals) == 0 {
		opts.Narration = domain.DefaultNarrationStyle()
	}

	return &Pipeline{
		source:      deps.Source,
		enricher:    deps.Enricher,
		synthesizer: deps.Synthesizer,
		processed:   deps.Processed,
		records:     deps.Records,
		audio:       deps.Audio,
		validator:   deps.Validator,
		logger:      deps.Logger,
		clock:       deps.Clock,
		opts:        opts,
	}
}

// Run processes every configured topic once. Per-item and per-topic failures are
// logged and counted; only cancellation of ctx is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := p.logger.With("run_id", report.RunID)

	stats := &report.Stats
	stats.StartedAt = p.clock()
	log.Info("run started", "topics", len(p.opts.Topics), "new_per_topic", p.opts.NewPerTopic)

	seen := p.loadSeen(ctx, log)
	attempted := domain.NewIDSet()

	var runErr error
topics:
	for _, topic := range p.opts.Topics {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		tlog := log.With("topic", topic.Name)
		candidates, err := p.source.Fetch(ctx, topic, p.opts.NewPerTopic, seen.Union(attempted))
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			stats.TopicsFailed++
			tlog.Error("fetch failed, skipping topic", "error", err)
			continue
		}
		if len(candidates) == 0 {
			tlog.Info("no new papers")
			continue
		}

		stats.Fetched += len(candidates)
		for _, paper := range candidates {
			if err := ctx.Err(); err != nil {
				runErr = err
				break topics
			}

			attempted.Add(paper.ID)
			record, ok := p.processPaper(ctx, tlog.With("paper_id", paper.ID), paper, stats)
			if !ok {
				continue
			}
			seen.Add(paper.ID)
			report.Records = append(report.Records, record)
		}
	}

	if runErr == nil {
		runErr = ctx.Err()
	}

	if err := p.processed.Save(context.WithoutCancel(ctx), seen); err != nil {
		stats.StorageFailures++
		log.Error("save processed ids", "error", err)
	}

	stats.Duration = p.clock().Sub(stats.StartedAt)
	log.Info("run finished",
		"fetched", stats.Fetched,
		"enriched", stats.Enriched,
		"enrichment_failures", stats.EnrichmentFailures,
		"audio_generated", stats.AudioGenerated,
		"synthesis_failures", stats.SynthesisFailures,
		"persisted", stats.Persisted,
		"storage_failures", stats.StorageFailures,
		"topics_failed", stats.TopicsFailed,
		"success_rate", fmt.Sprintf("%.2f%%", stats.SuccessRate()*100),
		"duration", stats.Duration.Round(100*time.Millisecond).String(),
	)

	if runErr != nil {
		log.Warn("run interrupted", "error", runErr)
	}
	return report, runErr
}

// loadSeen returns the dedup set reconciled with the record log, so an id that
// was appended before a crash is never processed twice.
func (p *Pipeline) loadSeen(ctx context.Context, log *slog.Logger) domain.IDSet {
	seen, err := p.processed.Load(ctx)
	if err != nil {
		log.Warn("load processed ids failed, rebuilding from record log", "error", err)
		seen = domain.NewIDSet()
	}

	logged, err := p.records.IDs(ctx)
	if err != nil {
		log.Warn("read record log ids", "error", err)
		return seen
	}

	missing := 0
	for id := range logged {
		if !seen.Has(id) {
			missing++
		}
	}
	if missing > 0 {
		log.Info("reconciled processed ids with record log", "recovered", missing)
	}
	return seen.Union(logged)
}

func (p *Pipeline) processPaper(ctx context.Context, log *slog.Logger, paper domain.Paper, stats *domain.RunStats) (domain.Record, bool) {
	log.Info("processing paper", "title", paper.Title)

	enrichment := p.enrich(ctx, log, paper, stats)

	var audio []byte
	narration := enrichment.Narration(p.opts.Narration)
	err := p.opts.SynthesisRetry.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		audio, err = p.synthesizer.Synthesize(ctx, narration)
		return err
	}, func(attempt int, err error) {
		log.Warn("synthesis attempt failed", "attempt", attempt, "error", err)
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("interrupted before persisting", "error", err)
			return domain.Record{}, false
		}
		stats.SynthesisFailures++
		log.Error("synthesis failed, skipping paper", "error", err)
		return domain.Record{}, false
	}
	stats.AudioGenerated++

	audioPath, err := p.audio.Save(ctx, paper.ID, audio)
	if err != nil {
		stats.StorageFailures++
		log.Error("save audio", "error", err)
		return domain.Record{}, false
	}

	record := domain.NewRecord(paper, enrichment, audioPath, p.clock())
	if err := p.records.Append(ctx, record); err != nil {
		stats.StorageFailures++
		log.Error("append record", "error", err)
		return domain.Record{}, false
	}
	stats.Persisted++

	log.Info("paper persisted", "audio", audioPath, "degraded", record.Degraded)
	return record, true
}

func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, paper domain.Paper, stats *domain.RunStats) domain.Enrichment {
	var result domain.Enrichment
	err := p.opts.EnrichRetry.Do(ctx, func(ctx context.Context, _ int) error {
		out, err := p.enricher.Enrich(ctx, paper.Title, paper.Abstract)
		if err != nil {
			return err
		}
		out, err = p.validator.Enrichment(out)
		if err != nil {
			return err
		}
		result = out
		return nil
	}, func(attempt int, err error) {
		log.Warn("enrichment attempt failed", "attempt", attempt, "error", err)
	})
	if err == nil {
		stats.Enriched++
		return result
	}

	stats.EnrichmentFailures++
	log.Error("enrichment failed, using fallback", "error", err)
	return p.opts.Fallback.Fallback(paper.Title, rootCause(err), p.validator.Rules().Applications)
}

// rootCause drops the retry wrapper so the fallback text names the actual failure.
func rootCause(err error) error {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Err
	}
	return err
}
