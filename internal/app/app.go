package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"PaperCast/internal/config"
	"PaperCast/internal/domain"
	"PaperCast/internal/infrastructure/llm"
	"PaperCast/internal/infrastructure/parser"
	"PaperCast/internal/infrastructure/scheduler"
	"PaperCast/internal/infrastructure/storage"
	"PaperCast/internal/infrastructure/telegram"
	"PaperCast/internal/infrastructure/tts"
	"PaperCast/internal/logging"
	"PaperCast/internal/metrics"
	"PaperCast/internal/ports"
	"PaperCast/internal/scanner"
	"PaperCast/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	records   *storage.RecordLog
	processed *storage.ProcessedIDs
	lock      *storage.RunLock
	pipeline  *usecase.Pipeline
	metrics   *metrics.RunMetrics
	notifier  ports.Notifier
}

// NewOffline builds an application that only touches local storage (list, backup, catalog).
func NewOffline(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	}

	st := cfg.Storage
	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		records:   storage.NewRecordLog(st.RecordsPath(), st.DataPath(), baseLogger.With("component", "storage.records")),
		processed: storage.NewProcessedIDs(st.ProcessedPath()),
		lock:      storage.NewRunLock(st.LockPath()),
	}, nil
}

// New builds a runnable application. Every error it returns is a configuration failure.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a, err := NewOffline(cfg, baseLogger)
	if err != nil {
		return nil, err
	}
	log := a.logger

	validator := domain.NewValidator(cfg.Enrichment.Validation)

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivAPIScanner(httpClient, cfg.Fetch.APIURL))
	registry.Register(parser.NewArxivListingScanner(httpClient))
	log.Debug("scanners registered", "names", registry.Names())

	source := parser.NewStrategySource(registry, validator, parser.SourceOptions{
		MaxResults:  cfg.Fetch.MaxResults,
		MinInterval: cfg.Fetch.MinInterval,
	}, log.With("component", "source"))

	enricher, err := newEnricher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	synthesizer, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Enricher:    enricher,
		Synthesizer: synthesizer,
		Processed:   a.processed,
		Records:     a.records,
		Audio:       storage.NewAudioDir(cfg.Storage.Root(), cfg.Storage.AudioPath(), ".wav"),
		Validator:   validator,
		Logger:      log.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		Topics:         topics(cfg.Topics),
		NewPerTopic:    cfg.Fetch.NewPerTopic,
		EnrichRetry:    retryPolicy(cfg.Enrichment.Retry),
		SynthesisRetry: retryPolicy(cfg.Synthesis.Retry),
		Fallback:       cfg.Enrichment.Fallback,
		Narration:      cfg.Synthesis.Narration,
	})

	if cfg.Metrics.Textfile != "" {
		a.metrics = metrics.NewRunMetrics()
	}
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		a.notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID)
	}
	return a, nil
}

func newEnricher(ctx context.Context, cfg config.Config) (ports.Enricher, error) {
	e := cfg.Enrichment
	instruction := e.Instruction
	if instruction == "" {
		instruction = llm.DefaultInstruction
	}

	switch e.Provider {
	case config.ProviderOpenAI:
		return llm.NewChatGPTClient(llm.ChatOptions{
			Endpoint:     e.OpenAI.Endpoint,
			Model:        e.OpenAI.Model,
			APIKey:       e.OpenAI.APIKey,
			SystemPrompt: e.OpenAI.SystemPrompt,
			Instruction:  instruction,
			Temperature:  e.Temperature,
			MaxTokens:    int(e.MaxOutputTokens),
			Timeout:      e.Timeout,
		}), nil
	default:
		return llm.NewGeminiEnricher(ctx, llm.GeminiOptions{
			APIKey:          cfg.Gemini.APIKey,
			Model:           e.Model,
			Temperature:     e.Temperature,
			MaxOutputTokens: e.MaxOutputTokens,
			Instruction:     instruction,
			Applications:    e.Validation.Applications,
			BaseURL:         cfg.Gemini.BaseURL,
			HTTPClient:      &http.Client{Timeout: e.Timeout},
		})
	}
}

func newSynthesizer(ctx context.Context, cfg config.Config) (ports.Synthesizer, error) {
	s := cfg.Synthesis
	switch s.Provider {
	case config.ProviderHTTP:
		return tts.NewHTTPSynthesizer(s.HTTP.Endpoint, s.HTTP.APIKey, s.Voice, s.MinAudioBytes, s.Timeout), nil
	default:
		return tts.NewGeminiSynthesizer(ctx, tts.GeminiOptions{
			APIKey:       cfg.Gemini.APIKey,
			Model:        s.Model,
			Voice:        s.Voice,
			LanguageCode: s.LanguageCode,
			Format: tts.PCMFormat{
				SampleRate:    s.SampleRate,
				Channels:      s.Channels,
				BitsPerSample: s.BitsPerSample,
			},
			MinAudioBytes: s.MinAudioBytes,
			BaseURL:       cfg.Gemini.BaseURL,
			HTTPClient:    &http.Client{Timeout: s.Timeout},
		})
	}
}

func topics(in []config.TopicConfig) []domain.Topic {
	out := make([]domain.Topic, 0, len(in))
	for _, t := range in {
		out = append(out, domain.Topic{Name: t.Name, Scanner: t.Scanner, Query: t.Query})
	}
	return out
}

func retryPolicy(r config.RetryConfig) usecase.RetryPolicy {
	return usecase.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		Multiplier:  r.Multiplier,
		MaxDelay:    r.MaxDelay,
	}
}

// RunOnce performs a single pipeline execution under the run lock.
func (a *Application) RunOnce(ctx context.Context) (usecase.Report, error) {
	if a.pipeline == nil {
		return usecase.Report{}, domain.Fail(domain.ErrConfiguration, "run", errors.New("application built without pipeline"))
	}
	if err := a.lock.Acquire(); err != nil {
		return usecase.Report{}, err
	}
	defer func() {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("release run lock", "error", err)
		}
	}()

	report, runErr := a.pipeline.Run(ctx)
	a.afterRun(context.WithoutCancel(ctx), report, runErr)
	return report, runErr
}

func (a *Application) afterRun(ctx context.Context, report usecase.Report, runErr error) {
	if a.metrics != nil {
		a.metrics.Observe(report.Stats, runErr)
		path := a.cfg.Metrics.Textfile
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("write metrics", "path", path, "error", err)
		}
	}

	if a.notifier == nil {
		return
	}
	digest := telegram.Digest(report.Records, report.Stats)
	if digest == "" {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.notifier.PublishDigest(notifyCtx, digest); err != nil {
		a.logger.Warn("publish digest", "error", err)
	}
}

// Serve runs the pipeline on the configured interval until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, func(ctx context.Context) error {
		_, err := a.RunOnce(ctx)
		return err
	}, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("serving", "interval", a.cfg.Scheduler.Interval.String(), "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Records returns up to limit records in file order; limit <= 0 returns all.
func (a *Application) Records(ctx context.Context, limit int) ([]domain.Record, error) {
	return a.records.LoadAll(ctx, limit)
}

// Find looks up one record by paper id.
func (a *Application) Find(ctx context.Context, id string) (domain.Record, bool, error) {
	return a.records.Find(ctx, id)
}

// AudioSize reports the size of a record's audio file, if it exists.
func (a *Application) AudioSize(r domain.Record) (int64, bool) {
	if r.Audio == "" {
		return 0, false
	}
	info, err := os.Stat(filepath.Join(a.cfg.Storage.Root(), filepath.FromSlash(r.Audio)))
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

// Backup copies the record log next to it and returns the backup path.
func (a *Application) Backup(ctx context.Context) (string, error) {
	return a.records.Backup(ctx)
}

// RebuildIDs regenerates the dedup file from the record log under the run lock.
func (a *Application) RebuildIDs(ctx context.Context) (int, error) {
	if err := a.lock.Acquire(); err != nil {
		return 0, err
	}
	defer func() { _ = a.lock.Release() }()

	ids, err := a.records.IDs(ctx)
	if err != nil {
		return 0, err
	}
	if err := a.processed.Save(ctx, ids); err != nil {
		return 0, err
	}
	a.logger.Info("processed ids rebuilt", "path", a.processed.Path(), "ids", ids.Len())
	return ids.Len(), nil
}

// CatalogSync upserts every record of the log into the SQLite catalog.
func (a *Application) CatalogSync(ctx context.Context) (int, error) {
	records, err := a.records.LoadAll(ctx, 0)
	if err != nil {
		return 0, err
	}

	catalog, err := storage.OpenCatalog(ctx, a.cfg.Storage.CatalogPath())
	if err != nil {
		return 0, err
	}
	defer catalog.Close()

	n, err := catalog.Sync(ctx, records)
	if err != nil {
		return 0, err
	}
	a.logger.Info("catalog synced", "path", a.cfg.Storage.CatalogPath(), "records", n)
	return n, nil
}

// CatalogRecent queries the catalog for the newest records, optionally for one topic.
func (a *Application) CatalogRecent(ctx context.Context, topic string, limit int) ([]domain.Record, error) {
	catalog, err := storage.OpenCatalog(ctx, a.cfg.Storage.CatalogPath())
	if err != nil {
		return nil, err
	}
	defer catalog.Close()
	return catalog.Recent(ctx, topic, limit)
}
