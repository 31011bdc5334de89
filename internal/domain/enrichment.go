package domain

import (
	"fmt"
	"strings"
)

// Enrichment is the translated, listener-friendly rendition of a paper.
type Enrichment struct {
	Title        string   `json:"title_zh"`
	Summary      string   `json:"summary_zh"`
	Applications []string `json:"applications"`
	Pitch        string   `json:"pitch"`
	Degraded     bool     `json:"-"`
}

// FallbackText holds the markers used when enrichment keeps failing.
type FallbackText struct {
	TitlePrefix   string `yaml:"title_prefix"`
	SummaryPrefix string `yaml:"summary_prefix"`
	Application   string `yaml:"application"`
	PitchPrefix   string `yaml:"pitch_prefix"`
}

// DefaultFallbackText returns the Traditional Chinese placeholders.
func DefaultFallbackText() FallbackText {
	return FallbackText{
		TitlePrefix:   "[翻譯失敗] ",
		SummaryPrefix: "摘要翻譯失敗：",
		Application:   "應用場景%d：翻譯失敗，請參考原文",
		PitchPrefix:   "推銷內容翻譯失敗：",
	}
}

// Fallback builds the degraded enrichment substituted after the last failed attempt.
func (f FallbackText) Fallback(title string, cause error, applications int) Enrichment {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	apps := make([]string, applications)
	for i := range apps {
		if strings.Contains(f.Application, "%d") {
			apps[i] = fmt.Sprintf(f.Application, i+1)
		} else {
			apps[i] = f.Application
		}
	}

	return Enrichment{
		Title:        f.TitlePrefix + title,
		Summary:      f.SummaryPrefix + reason,
		Applications: apps,
		Pitch:        f.PitchPrefix + reason,
		Degraded:     true,
	}
}

// NarrationStyle holds the connective phrases of the spoken script.
type NarrationStyle struct {
	ApplicationsLead string   `yaml:"applications_lead"`
	Ordinals         []string `yaml:"ordinals"`
	PitchLead        string   `yaml:"pitch_lead"`
}

// DefaultNarrationStyle returns the Traditional Chinese phrasing.
func DefaultNarrationStyle() NarrationStyle {
	return NarrationStyle{
		ApplicationsLead: "這項技術有三個生活化的應用場景：",
		Ordinals:         []string{"第一，", "第二，", "第三，"},
		PitchLead:        "如果向創投或天使基金推銷，可以這樣說：",
	}
}

// Narration renders the text sent to speech synthesis.
func (e Enrichment) Narration(style NarrationStyle) string {
	var b strings.Builder
	b.WriteString(e.Title)
	b.WriteString("\n\n")
	b.WriteString(e.Summary)
	b.WriteString("\n\n")
	b.WriteString(style.ApplicationsLead)
	b.WriteString("\n")
	for i, app := range e.Applications {
		if i < len(style.Ordinals) {
			b.WriteString(style.Ordinals[i])
		}
		b.WriteString(app)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(style.PitchLead)
	b.WriteString("\n")
	b.WriteString(e.Pitch)
	return b.String()
}
