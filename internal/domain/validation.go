package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// Rules are the acceptance thresholds for an enrichment result. Lengths are in runes.
type Rules struct {
	MinTitle     int `yaml:"min_title"`
	MinSummary   int `yaml:"min_summary"`
	MinPitch     int `yaml:"min_pitch"`
	Applications int `yaml:"applications"`
}

// DefaultRules mirrors what the front end expects to render.
func DefaultRules() Rules {
	return Rules{MinTitle: 5, MinSummary: 50, MinPitch: 20, Applications: 3}
}

// Validator checks fetched candidates and enrichment results.
type Validator struct {
	rules Rules
	v     *validator.Validate
}

// NewValidator builds a validator for the given thresholds.
func NewValidator(rules Rules) *Validator {
	return &Validator{
		rules: rules,
		v:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Rules returns the configured thresholds.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Paper reports whether a candidate carries an id, a url, a title, an abstract and at least one author.
func (v *Validator) Paper(p Paper) error {
	if err := v.v.Struct(p); err != nil {
		return fmt.Errorf("invalid paper %q: %s", p.ID, describe(err))
	}
	return nil
}

// Enrichment normalises e and checks it against the rules.
// The normalised value is returned even when validation fails.
func (v *Validator) Enrichment(e Enrichment) (Enrichment, error) {
	e = NormalizeEnrichment(e)

	checks := []struct {
		field string
		value any
		tag   string
	}{
		{"title_zh", e.Title, fmt.Sprintf("required,min=%d", v.rules.MinTitle)},
		{"summary_zh", e.Summary, fmt.Sprintf("required,min=%d", v.rules.MinSummary)},
		{"applications", e.Applications, fmt.Sprintf("len=%d,dive,required", v.rules.Applications)},
		{"pitch", e.Pitch, fmt.Sprintf("required,min=%d", v.rules.MinPitch)},
	}

	var errs []error
	for _, c := range checks {
		if err := v.v.Var(c.value, c.tag); err != nil {
			errs = append(errs, fmt.Errorf("%s %s", c.field, describe(err)))
		}
	}
	if len(errs) > 0 {
		return e, Fail(ErrEnrichment, "validate enrichment", errors.Join(errs...))
	}
	return e, nil
}

// NormalizeEnrichment trims every field and converts it to NFC.
func NormalizeEnrichment(e Enrichment) Enrichment {
	e.Title = clean(e.Title)
	e.Summary = clean(e.Summary)
	e.Pitch = clean(e.Pitch)
	if e.Applications != nil {
		apps := make([]string, len(e.Applications))
		for i, app := range e.Applications {
			apps[i] = clean(app)
		}
		e.Applications = apps
	}
	return e
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		if fe.Field() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), rule))
		} else {
			parts = append(parts, "failed "+rule)
		}
	}
	return strings.Join(parts, "; ")
}
