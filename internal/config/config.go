package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"PaperCast/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PAPERCAST_CONFIG"
	baseDirEnv        = "PAPERCAST_BASE_DIR"
	logLevelEnv       = "PAPERCAST_LOG_LEVEL"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	googleAPIKeyEnv   = "GOOGLE_API_KEY"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	ttsAPIKeyEnv      = "TTS_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Scanner and provider names accepted in the config file.
const (
	ScannerArxiv        = "arxiv"
	ScannerArxivListing = "arxiv-listing"
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderHTTP        = "http"
)

// Config holds high-level settings required across the application.
type Config struct {
	Topics        []TopicConfig      `yaml:"topics"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Synthesis     SynthesisConfig    `yaml:"synthesis"`
	Storage       StorageConfig      `yaml:"storage"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// TopicConfig is one search topic. Query defaults to Name; for arxiv-listing it is a listing URL.
type TopicConfig struct {
	Name    string `yaml:"name"`
	Scanner string `yaml:"scanner"`
	Query   string `yaml:"query"`
}

// FetchConfig controls the paper index queries.
type FetchConfig struct {
	APIURL      string        `yaml:"api_url"`
	MaxResults  int           `yaml:"max_results"`
	NewPerTopic int           `yaml:"new_per_topic"`
	MinInterval time.Duration `yaml:"min_interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GeminiConfig is shared by the Gemini enrichment and speech clients.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RetryConfig maps to usecase.RetryPolicy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// EnrichmentConfig selects and tunes the translation model.
type EnrichmentConfig struct {
	Provider        string              `yaml:"provider"`
	Model           string              `yaml:"model"`
	Temperature     float32             `yaml:"temperature"`
	MaxOutputTokens int32               `yaml:"max_output_tokens"`
	Instruction     string              `yaml:"instruction"`
	Timeout         time.Duration       `yaml:"timeout"`
	Validation      domain.Rules        `yaml:"validation"`
	Fallback        domain.FallbackText `yaml:"fallback"`
	Retry           RetryConfig         `yaml:"retry"`
	OpenAI          OpenAIConfig        `yaml:"openai"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"api_key"`
	SystemPrompt string `yaml:"system_prompt"`
}

// SynthesisConfig selects and tunes the speech model.
type SynthesisConfig struct {
	Provider      string                `yaml:"provider"`
	Model         string                `yaml:"model"`
	Voice         string                `yaml:"voice"`
	LanguageCode  string                `yaml:"language_code"`
	SampleRate    int                   `yaml:"sample_rate"`
	Channels      int                   `yaml:"channels"`
	BitsPerSample int                   `yaml:"bits_per_sample"`
	MinAudioBytes int                   `yaml:"min_audio_bytes"`
	Timeout       time.Duration         `yaml:"timeout"`
	Narration     domain.NarrationStyle `yaml:"narration"`
	Retry         RetryConfig           `yaml:"retry"`
	HTTP          HTTPTTSConfig         `yaml:"http"`
}

// HTTPTTSConfig points at a self-hosted speech service.
type HTTPTTSConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// StorageConfig lays out the site data. Relative paths resolve against BaseDir;
// RecordsFile, ProcessedFile, CatalogFile and LockFile resolve against DataDir.
type StorageConfig struct {
	BaseDir       string `yaml:"base_dir"`
	DataDir       string `yaml:"data_dir"`
	AudioDir      string `yaml:"audio_dir"`
	RecordsFile   string `yaml:"records_file"`
	ProcessedFile string `yaml:"processed_file"`
	CatalogFile   string `yaml:"catalog_file"`
	LockFile      string `yaml:"lock_file"`
}

// SchedulerConfig defines how often serve mode runs the pipeline.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig selects level and output format (text, json or auto).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) over the defaults and applies environment overrides.
// An empty path falls back to $PAPERCAST_CONFIG; with neither set, defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.Fail(domain.ErrConfiguration, "read config", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, domain.Fail(domain.ErrConfiguration, "parse config "+path, err)
		}
		if len(cfg.Topics) == 0 {
			cfg.Topics = Default().Topics
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	} else if v := os.Getenv(googleAPIKeyEnv); v != "" && c.Gemini.APIKey == "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.Enrichment.OpenAI.APIKey = v
	}

	if v := os.Getenv(ttsAPIKeyEnv); v != "" {
		c.Synthesis.HTTP.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(baseDirEnv); v != "" {
		c.Storage.BaseDir = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return domain.Fail(domain.ErrConfiguration, "scheduler timezone", err)
	}
	c.Scheduler.location = loc
	return nil
}

// Validate checks everything a pipeline run needs.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.Topics) == 0 {
		add("at least one topic is required")
	}
	seen := map[string]bool{}
	for i, t := range c.Topics {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			add("topics[%d]: name is required", i)
		case seen[name]:
			add("topics[%d]: duplicate topic %q", i, name)
		}
		seen[name] = true

		switch t.Scanner {
		case ScannerArxiv:
		case ScannerArxivListing:
			if strings.TrimSpace(t.Query) == "" {
				add("topics[%d]: %s needs a listing url in query", i, ScannerArxivListing)
			}
		default:
			add("topics[%d]: unknown scanner %q", i, t.Scanner)
		}
	}

	if c.Fetch.MaxResults <= 0 {
		add("fetch.max_results must be positive")
	}
	if c.Fetch.NewPerTopic <= 0 {
		add("fetch.new_per_topic must be positive")
	}
	if c.Fetch.MinInterval < 0 {
		add("fetch.min_interval must not be negative")
	}

	switch c.Enrichment.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			add("%s is required for the gemini enrichment provider", geminiAPIKeyEnv)
		}
		if c.Enrichment.Model == "" {
			add("enrichment.model is required")
		}
	case ProviderOpenAI:
		if c.Enrichment.OpenAI.APIKey == "" {
			add("%s is required for the openai enrichment provider", openAIAPIKeyEnv)
		}
		if c.Enrichment.OpenAI.Endpoint == "" || c.Enrichment.OpenAI.Model == "" {
			add("enrichment.openai endpoint and model are required")
		}
	default:
		add("unknown enrichment provider %q", c.Enrichment.Provider)
	}

	rules := c.Enrichment.Validation
	if rules.Applications <= 0 {
		add("enrichment.validation.applications must be positive")
	}
	if rules.MinTitle < 0 || rules.MinSummary < 0 || rules.MinPitch < 0 {
		add("enrichment.validation minimums must not be negative")
	}

	switch c.Synthesis.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			add("%s is required for the gemini synthesis provider", geminiAPIKeyEnv)
		}
		if c.Synthesis.Model == "" || c.Synthesis.Voice == "" {
			add("synthesis.model and synthesis.voice are required")
		}
	case ProviderHTTP:
		if c.Synthesis.HTTP.Endpoint == "" {
			add("synthesis.http.endpoint is required for the http synthesis provider")
		}
	default:
		add("unknown synthesis provider %q", c.Synthesis.Provider)
	}
	if c.Synthesis.MinAudioBytes < 0 {
		add("synthesis.min_audio_bytes must not be negative")
	}

	errs = append(errs, validateRetry("enrichment.retry", c.Enrichment.Retry)...)
	errs = append(errs, validateRetry("synthesis.retry", c.Synthesis.Retry)...)
	errs = append(errs, c.Storage.validate()...)

	if c.Scheduler.Interval <= 0 {
		add("scheduler.interval must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "auto":
	default:
		add("logging.format must be text, json or auto")
	}

	if len(errs) > 0 {
		return domain.Fail(domain.ErrConfiguration, "validate config", errors.Join(errs...))
	}
	return nil
}

// ValidateStorage checks only what the offline commands (list, backup, catalog) need.
func (c Config) ValidateStorage() error {
	if errs := c.Storage.validate(); len(errs) > 0 {
		return domain.Fail(domain.ErrConfiguration, "validate storage config", errors.Join(errs...))
	}
	return nil
}

func validateRetry(name string, r RetryConfig) []error {
	var errs []error
	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s.max_attempts must be at least 1", name))
	}
	if r.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("%s.base_delay must not be negative", name))
	}
	if r.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("%s.multiplier must be at least 1", name))
	}
	return errs
}

func (s StorageConfig) validate() []error {
	var errs []error
	for name, v := range map[string]string{
		"storage.data_dir":       s.DataDir,
		"storage.audio_dir":      s.AudioDir,
		"storage.records_file":   s.RecordsFile,
		"storage.processed_file": s.ProcessedFile,
		"storage.catalog_file":   s.CatalogFile,
		"storage.lock_file":      s.LockFile,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errs
}

// DataPath resolves the data directory.
func (s StorageConfig) DataPath() string {
	return resolve(s.baseDir(), s.DataDir)
}

// AudioPath resolves the audio directory.
func (s StorageConfig) AudioPath() string {
	return resolve(s.baseDir(), s.AudioDir)
}

// RecordsPath resolves the JSON Lines dataset.
func (s StorageConfig) RecordsPath() string {
	return resolve(s.DataPath(), s.RecordsFile)
}

// ProcessedPath resolves the deduplication file.
func (s StorageConfig) ProcessedPath() string {
	return resolve(s.DataPath(), s.ProcessedFile)
}

// CatalogPath resolves the SQLite catalog.
func (s StorageConfig) CatalogPath() string {
	return resolve(s.DataPath(), s.CatalogFile)
}

// LockPath resolves the run lock file.
func (s StorageConfig) LockPath() string {
	return resolve(s.DataPath(), s.LockFile)
}

// Root returns the directory audio paths are reported relative to.
func (s StorageConfig) Root() string {
	return s.baseDir()
}

func (s StorageConfig) baseDir() string {
	if s.BaseDir == "" {
		return "."
	}
	return s.BaseDir
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Default returns the built-in configuration.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Topics: []TopicConfig{
			{Name: "AI", Scanner: ScannerArxiv},
			{Name: "Foundation Model", Scanner: ScannerArxiv},
			{Name: "Diffusion Model", Scanner: ScannerArxiv},
		},
		Fetch: FetchConfig{
			APIURL:      "https://export.arxiv.org/api/query",
			MaxResults:  50,
			NewPerTopic: 1,
			MinInterval: 3 * time.Second,
			Timeout:     30 * time.Second,
		},
		Enrichment: EnrichmentConfig{
			Provider:        ProviderGemini,
			Model:           "gemini-2.0-flash-001",
			Temperature:     0.7,
			MaxOutputTokens: 2000,
			Timeout:         60 * time.Second,
			Validation:      domain.DefaultRules(),
			Fallback:        domain.DefaultFallbackText(),
			Retry:           RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second},
			OpenAI: OpenAIConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
		},
		Synthesis: SynthesisConfig{
			Provider:      ProviderGemini,
			Model:         "gemini-2.5-flash-preview-tts",
			Voice:         "Kore",
			SampleRate:    24000,
			Channels:      1,
			BitsPerSample: 16,
			MinAudioBytes: 1000,
			Timeout:       2 * time.Minute,
			Narration:     domain.DefaultNarrationStyle(),
			Retry:         RetryConfig{MaxAttempts: 1, BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second},
		},
		Storage: StorageConfig{
			BaseDir:       ".",
			DataDir:       "docs/data",
			AudioDir:      "docs/data/audios",
			RecordsFile:   "news.jsonl",
			ProcessedFile: "processed_ids.txt",
			CatalogFile:   "papercast.db",
			LockFile:      ".papercast.lock",
		},
		Scheduler: SchedulerConfig{Interval: time.Hour, Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}
