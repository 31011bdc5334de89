package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnrichment() Enrichment {
	return Enrichment{
		Title:        "  擴散模型的新突破  ",
		Summary:      strings.Repeat("這是一段足夠長的摘要內容。", 5),
		Applications: []string{"醫療影像", "自動駕駛", "個人助理"},
		Pitch:        "這是一項能徹底改變產業的技術，值得投資！",
	}
}

func TestValidatorEnrichmentAcceptsAndTrims(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultRules())
	got, err := v.Enrichment(validEnrichment())
	require.NoError(t, err)
	assert.Equal(t, "擴散模型的新突破", got.Title)
	assert.Len(t, got.Applications, 3)
}

func TestValidatorEnrichmentRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Enrichment){
		"short title":       func(e *Enrichment) { e.Title = "短" },
		"blank title":       func(e *Enrichment) { e.Title = "     " },
		"short summary":     func(e *Enrichment) { e.Summary = "太短了" },
		"two applications":  func(e *Enrichment) { e.Applications = e.Applications[:2] },
		"four applications": func(e *Enrichment) { e.Applications = append(e.Applications, "多一個") },
		"empty application": func(e *Enrichment) { e.Applications[1] = "  " },
		"nil applications":  func(e *Enrichment) { e.Applications = nil },
		"short pitch":       func(e *Enrichment) { e.Pitch = "值得投資" },
	}

	v := NewValidator(DefaultRules())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := validEnrichment()
			e.Applications = append([]string(nil), e.Applications...)
			mutate(&e)

			_, err := v.Enrichment(e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEnrichment))
		})
	}
}

func TestValidatorCountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	v := NewValidator(Rules{MinTitle: 5, MinSummary: 1, MinPitch: 1, Applications: 1})
	e := Enrichment{Title: "四個中字", Summary: "s", Applications: []string{"a"}, Pitch: "p"}

	_, err := v.Enrichment(e)
	require.Error(t, err, "four runes is below five even though it is twelve bytes")

	e.Title = "五個中文字"
	_, err = v.Enrichment(e)
	require.NoError(t, err)
}

func TestValidatorPaper(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultRules())
	p := Paper{ID: "2501.00001v1", URL: "http://arxiv.org/abs/2501.00001v1", Title: "T", Abstract: "A", Authors: []string{"Ada"}}
	require.NoError(t, v.Paper(p))

	noAuthors := p
	noAuthors.Authors = []string{}
	require.Error(t, v.Paper(noAuthors))

	noID := p
	noID.ID = ""
	require.Error(t, v.Paper(noID))
}
