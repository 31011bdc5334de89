package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSet(t *testing.T) {
	t.Parallel()

	s := NewIDSet("b", " a ", "", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())

	var empty IDSet
	assert.False(t, empty.Has("a"))

	u := s.Union(NewIDSet("c"))
	assert.Equal(t, []string{"a", "b", "c"}, u.Sorted())
	assert.False(t, s.Has("c"), "union must not mutate the receiver")
}

func TestFallback(t *testing.T) {
	t.Parallel()

	e := DefaultFallbackText().Fallback("Attention Is All You Need", errors.New("quota exceeded"), 3)
	assert.True(t, e.Degraded)
	assert.Equal(t, "[翻譯失敗] Attention Is All You Need", e.Title)
	assert.Equal(t, "摘要翻譯失敗：quota exceeded", e.Summary)
	assert.Equal(t, []string{
		"應用場景1：翻譯失敗，請參考原文",
		"應用場景2：翻譯失敗，請參考原文",
		"應用場景3：翻譯失敗，請參考原文",
	}, e.Applications)
	assert.Equal(t, "推銷內容翻譯失敗：quota exceeded", e.Pitch)
}

func TestNarration(t *testing.T) {
	t.Parallel()

	e := Enrichment{Title: "標題", Summary: "摘要", Applications: []string{"甲", "乙", "丙"}, Pitch: "投資我們"}
	want := "標題\n\n摘要\n\n這項技術有三個生活化的應用場景：\n第一，甲\n第二，乙\n第三，丙\n\n如果向創投或天使基金推銷，可以這樣說：\n投資我們"
	assert.Equal(t, want, e.Narration(DefaultNarrationStyle()))
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Paper{ID: "2501.1", URL: "u", Title: "T", Abstract: "A", Authors: []string{"Ada"}, PublishedDate: "2025-01-01", Query: "AI"}
	e := Enrichment{Title: "t", Summary: "s", Applications: []string{"1", "2", "3"}, Pitch: "p", Degraded: true}

	r := NewRecord(p, e, "docs/data/audios/2501.1.wav", at)
	assert.Equal(t, "AI", r.Query)
	assert.Equal(t, "A", r.Summary)
	assert.Equal(t, "s", r.SummaryZh)
	assert.Equal(t, "2025-01-02T03:04:05Z", r.Timestamp)
	assert.True(t, r.Degraded)
	assert.Equal(t, at, r.ProcessedAt())

	p.Authors[0] = "Bob"
	assert.Equal(t, "Ada", r.Authors[0])
}

func TestSuccessRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, RunStats{}.SuccessRate())
	assert.InDelta(t, 0.5, RunStats{Fetched: 4, Enriched: 2}.SuccessRate(), 1e-9)
}

func TestFailureUnwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("dial: %w", errors.New("refused"))
	err := fmt.Errorf("topic AI: %w", Fail(ErrFetch, "fetch arxiv", cause))

	require.ErrorIs(t, err, ErrFetch)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStorage)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "fetch arxiv", f.Op)
}
