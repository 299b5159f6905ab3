// Package i18nstatus reports translation coverage of the embedded catalogs
// against the base locale.
package i18nstatus

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	i18ncatalog "github.com/louisbranch/dicebox/internal/platform/i18n/catalog"
)

// Report is the coverage of every locale against BaseLocale.
type Report struct {
	BaseLocale string         `json:"base_locale"`
	Locales    []LocaleStatus `json:"locales"`
}

// LocaleStatus counts the keys one locale translates.
type LocaleStatus struct {
	Locale      string   `json:"locale"`
	BaseKeys    int      `json:"base_keys"`
	Translated  int      `json:"translated"`
	Completion  float64  `json:"completion"`
	MissingKeys []string `json:"missing_keys"`
	ExtraKeys   []string `json:"extra_keys"`
}

// Build compares every locale of bundle to baseLocale.
func Build(bundle *i18ncatalog.Bundle, baseLocale string) (Report, error) {
	if bundle == nil {
		return Report{}, fmt.Errorf("catalog bundle is required")
	}
	if !bundle.HasLocale(baseLocale) {
		return Report{}, fmt.Errorf("base locale %q is missing from catalogs", baseLocale)
	}

	base := bundle.LocaleMessages(baseLocale)
	locales := bundle.Locales()
	slices.Sort(locales)
	rep := Report{BaseLocale: baseLocale, Locales: make([]LocaleStatus, 0, len(locales))}
	for _, locale := range locales {
		messages := bundle.LocaleMessages(locale)
		missing := keysNotIn(base, messages)
		translated := len(base) - len(missing)
		rep.Locales = append(rep.Locales, LocaleStatus{
			Locale:      locale,
			BaseKeys:    len(base),
			Translated:  translated,
			Completion:  percent(translated, len(base)),
			MissingKeys: missing,
			ExtraKeys:   keysNotIn(messages, base),
		})
	}
	return rep, nil
}

// Incomplete lists the locales with missing keys.
func (r Report) Incomplete() []string {
	var out []string
	for _, status := range r.Locales {
		if len(status.MissingKeys) > 0 {
			out = append(out, status.Locale)
		}
	}
	return out
}

// WriteMarkdown renders the report as a markdown table followed by the
// missing keys of each incomplete locale.
func WriteMarkdown(w io.Writer, r Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# i18n status\n\nBase locale: `%s`\n\n", r.BaseLocale)
	b.WriteString("| Locale | Translated | Completion | Missing | Extra |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, s := range r.Locales {
		fmt.Fprintf(&b, "| `%s` | %d/%d | %.1f%% | %d | %d |\n",
			s.Locale, s.Translated, s.BaseKeys, s.Completion, len(s.MissingKeys), len(s.ExtraKeys))
	}
	for _, s := range r.Locales {
		if len(s.MissingKeys) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Missing in `%s`\n\n", s.Locale)
		for _, key := range s.MissingKeys {
			fmt.Fprintf(&b, "- `%s`\n", key)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// keysNotIn returns the sorted keys of from that target lacks.
func keysNotIn(from, target map[string]string) []string {
	out := []string{}
	for key := range from {
		if _, ok := target[key]; !ok {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

func percent(numerator, denominator int) float64 {
	if denominator == 0 {
		return 100
	}
	return math.Round(float64(numerator)/float64(denominator)*1000) / 10
}
