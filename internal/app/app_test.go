package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperCast/internal/config"
	"PaperCast/internal/domain"
	"PaperCast/internal/infrastructure/storage"
	"PaperCast/internal/logging"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2501.00003v1</id>
    <published>2025-01-03T10:00:00Z</published>
    <title>Third Paper</title>
    <summary>Newest abstract.</summary>
    <author><name>Ada Lovelace</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2501.00002v1</id>
    <published>2025-01-02T10:00:00Z</published>
    <title>Second Paper</title>
    <summary>Older abstract.</summary>
    <author><name>Alan Turing</name></author>
  </entry>
</feed>`

type upstream struct {
	mu       sync.Mutex
	digests  []string
	ttsCalls int
}

func (u *upstream) handler(t *testing.T) http.Handler {
	enrichment := map[string]any{
		"title_zh":     "第一篇論文標題",
		"summary_zh":   strings.Repeat("這是一段給聽眾的摘要。", 6),
		"applications": []string{"醫療", "教育", "交通"},
		"pitch":        "這項技術將徹底改變我們的日常生活與工作方式",
	}
	enrichmentText, _ := json.Marshal(enrichment)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(feed))
	})
	mux.HandleFunc("/tts", func(w http.ResponseWriter, _ *http.Request) {
		u.mu.Lock()
		u.ttsCalls++
		u.mu.Unlock()
		_, _ = w.Write(make([]byte, 2048))
	})
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		u.mu.Lock()
		u.digests = append(u.digests, r.PostForm.Get("text"))
		u.mu.Unlock()
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": string(enrichmentText)}}},
				"finishReason": "STOP",
			}},
		})
	})
	return mux
}

func testConfig(t *testing.T, serverURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Topics = []config.TopicConfig{{Name: "AI", Scanner: config.ScannerArxiv}}
	cfg.Fetch.APIURL = serverURL + "/api/query"
	cfg.Fetch.MinInterval = 0
	cfg.Gemini.APIKey = "test-key"
	cfg.Gemini.BaseURL = serverURL
	cfg.Synthesis.Provider = config.ProviderHTTP
	cfg.Synthesis.HTTP.Endpoint = serverURL + "/tts"
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Notifications.Telegram = config.TelegramConfig{APIURL: serverURL, BotToken: "TOKEN", ChatID: "1"}
	cfg.Metrics.Textfile = filepath.Join(cfg.Storage.BaseDir, "metrics", "papercast.prom")
	return cfg
}

func TestRunOnceAdvancesOnePaperPerRun(t *testing.T) {
	up := &upstream{}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	ctx := context.Background()
	application, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)

	report, err := application.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "2501.00003", report.Records[0].ID)
	assert.Equal(t, "docs/data/audios/2501.00003.wav", report.Records[0].Audio)
	assert.Equal(t, 1, report.Stats.Persisted)

	report, err = application.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "2501.00002", report.Records[0].ID)

	report, err = application.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Records)

	records, err := application.Records(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	size, ok := application.AudioSize(records[0])
	assert.True(t, ok)
	assert.EqualValues(t, 2048, size)

	ids, err := os.ReadFile(cfg.Storage.ProcessedPath())
	require.NoError(t, err)
	assert.Equal(t, "2501.00002\n2501.00003", strings.TrimSpace(string(ids)))

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `papercast_runs_total{outcome="completed"} 3`)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, 2, up.ttsCalls)
	require.Len(t, up.digests, 2)
	assert.Contains(t, up.digests[0], "第一篇論文標題")
}

func TestRunOnceFailsWhileLockHeld(t *testing.T) {
	up := &upstream{}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)

	other := storage.NewRunLock(cfg.Storage.LockPath())
	require.NoError(t, other.Acquire())
	defer other.Release()

	_, err = application.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BaseDir = t.TempDir()

	_, err := New(context.Background(), cfg, logging.Discard())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOfflineCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BaseDir = t.TempDir()
	ctx := context.Background()

	application, err := NewOffline(cfg, logging.Discard())
	require.NoError(t, err)

	log := storage.NewRecordLog(cfg.Storage.RecordsPath(), cfg.Storage.DataPath(), logging.Discard())
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"2501.00001", "2501.00002"} {
		rec := domain.Record{
			Query: "AI", ID: id, URL: "http://arxiv.org/abs/" + id, Title: "T", Summary: "S",
			Authors: []string{"A"}, Timestamp: at.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		}
		require.NoError(t, log.Append(ctx, rec))
	}

	n, err := application.RebuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	backup, err := application.Backup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, backup)

	synced, err := application.CatalogSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	recent, err := application.CatalogRecent(ctx, "AI", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2501.00002", recent[0].ID)

	_, err = application.RunOnce(ctx)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
