package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperCast/internal/domain"
)

func sampleRecord(id string) domain.Record {
	return domain.Record{
		Query:         "AI",
		ID:            id,
		URL:           "http://arxiv.org/abs/" + id,
		Title:         "Scaling <Laws> & Friends",
		Summary:       "We study things.",
		Authors:       []string{"Ada Lovelace", "Alan Turing"},
		PublishedDate: "2025-01-02",
		Timestamp:     "2025-01-03T04:05:06Z",
		TitleZh:       "規模定律與朋友們",
		SummaryZh:     "我們研究了一些事情。",
		Applications:  []string{"一", "二", "三"},
		Pitch:         "請投資我們。",
		Audio:         "docs/data/audios/" + id + ".wav",
	}
}

func TestProcessedIDsMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewProcessedIDs(filepath.Join(t.TempDir(), "processed_ids.txt"))
	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ids.Len())
}

func TestProcessedIDsSaveIsSortedAndRoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "processed_ids.txt")
	store := NewProcessedIDs(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewIDSet("2501.3", "2501.1", "2501.2")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2501.1\n2501.2\n2501.3\n", string(raw))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2501.1", "2501.2", "2501.3"}, ids.Sorted())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestProcessedIDsIgnoresBlankLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n\n  b  \n\n"), 0o644))

	ids, err := NewProcessedIDs(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids.Sorted())
}

func TestRecordLogRoundTrip(t *testing.T) {
	t.Parallel()

	log := NewRecordLog(filepath.Join(t.TempDir(), "news.jsonl"), "", nil)
	ctx := context.Background()
	rec := sampleRecord("2501.00001v1")

	require.NoError(t, log.Append(ctx, rec))

	raw, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "規模定律", "non-ASCII text must be written verbatim")
	assert.Contains(t, string(raw), "<Laws> & Friends", "HTML characters must not be escaped")
	assert.Equal(t, 1, strings.Count(string(raw), "\n"))

	records, err := log.LoadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestRecordLogSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "news.jsonl")
	log := NewRecordLog(path, "", nil)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, sampleRecord("a")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json}\n\n{\"id\":\"trunc")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(ctx, sampleRecord("b")))

	records, err := log.LoadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)

	ids, err := log.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids.Sorted())
}

func TestRecordLogLimitFindAndMissing(t *testing.T) {
	t.Parallel()

	log := NewRecordLog(filepath.Join(t.TempDir(), "news.jsonl"), "", nil)
	ctx := context.Background()

	records, err := log.LoadAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, log.Append(ctx, sampleRecord(id)))
	}

	records, err = log.LoadAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].ID)

	found, ok, err := log.Find(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", found.ID)

	_, ok, err = log.Find(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordLogBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewRecordLog(filepath.Join(dir, "news.jsonl"), "", nil)
	log.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	ctx := context.Background()
	require.NoError(t, log.Append(ctx, sampleRecord("a")))

	path, err := log.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup_20250304_050607.jsonl"), path)

	orig, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	copied, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)
}

func TestAudioDirSave(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store := NewAudioDir(base, filepath.Join(base, "docs", "data", "audios"), "wav")

	rel, err := store.Save(context.Background(), "hep-th/9901001v1", []byte("RIFF...."))
	require.NoError(t, err)
	assert.Equal(t, "docs/data/audios/hep-th_9901001v1.wav", rel)

	raw, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(raw))

	_, err = store.Save(context.Background(), "x", nil)
	require.ErrorIs(t, err, domain.ErrStorage)
}

func TestRunLockExcludesSecondHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".papercast.lock")
	first := NewRunLock(path)
	require.NoError(t, first.Acquire())

	second := NewRunLock(path)
	err := second.Acquire()
	require.ErrorIs(t, err, domain.ErrConfiguration)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestCatalogSyncAndRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog, err := OpenCatalog(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	older := sampleRecord("a")
	newer := sampleRecord("b")
	newer.Timestamp = "2025-02-01T00:00:00Z"
	other := sampleRecord("c")
	other.Query = "Diffusion Model"
	other.Degraded = true

	n, err := catalog.Sync(ctx, []domain.Record{older, newer, other})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Syncing again upserts instead of duplicating.
	_, err = catalog.Sync(ctx, []domain.Record{older})
	require.NoError(t, err)

	recent, err := catalog.Recent(ctx, "AI", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, older.Authors, recent[1].Authors)

	all, err := catalog.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)

	diff, err := catalog.Recent(ctx, "Diffusion Model", 0)
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.True(t, diff[0].Degraded)
	assert.Equal(t, []string{"一", "二", "三"}, diff[0].Applications)
}
