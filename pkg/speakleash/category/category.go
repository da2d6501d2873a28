// Package category matches dataset category scores against requested
// category names in Polish or English.
//
// The registry publishes two index-aligned label lists, categories_pl.txt
// and categories_en.txt; label i in one list names the same concept as
// label i in the other. Manifests score datasets against the Polish labels,
// so English requests are translated by position before matching.
package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
	"github.com/jamesainslie/speakleash/pkg/speakleash/logging"
	"github.com/jamesainslie/speakleash/pkg/speakleash/manifest"
)

var logger = logging.Get("category")

// Supported label languages.
const (
	LangPL = "pl"
	LangEN = "en"
)

// DefaultLabelsURL is the registry directory holding the label lists.
const DefaultLabelsURL = "https://speakleash.space/datasets_text/"

// Resolver holds the label lists for one session.
type Resolver struct {
	pl []string
	en []string
}

// Options configures NewResolver.
type Options struct {
	// Fetcher downloads missing label lists.
	Fetcher fetch.Fetcher

	// Store caches label lists. Nil disables caching.
	Store LabelStore

	// LabelsURL overrides DefaultLabelsURL. It must end with a slash.
	LabelsURL string
}

// NewResolver loads both label lists, from the store when present and from
// the registry otherwise.
func NewResolver(ctx context.Context, opts Options) (*Resolver, error) {
	if opts.LabelsURL == "" {
		opts.LabelsURL = DefaultLabelsURL
	}

	pl, err := loadLabels(ctx, opts, LangPL)
	if err != nil {
		return nil, err
	}
	en, err := loadLabels(ctx, opts, LangEN)
	if err != nil {
		return nil, err
	}
	return NewResolverFromLabels(pl, en), nil
}

// NewResolverFromLabels builds a Resolver from already loaded lists.
func NewResolverFromLabels(pl, en []string) *Resolver {
	// Alignment is assumed, not verified: a drift between the lists yields
	// wrong translations, so surface it without correcting anything.
	if len(pl) != len(en) {
		logger.Warn("category label lists differ in length", "pl", len(pl), "en", len(en))
	}
	return &Resolver{pl: pl, en: en}
}

// LabelsURL returns the location of the label list for lang.
func LabelsURL(base, lang string) string {
	return base + "categories_" + lang + ".txt"
}

func loadLabels(ctx context.Context, opts Options, lang string) ([]string, error) {
	if opts.Store != nil {
		labels, err := opts.Store.Load(lang)
		if err == nil {
			return labels, nil
		}
		if !errors.Is(err, ErrNoLabels) {
			logger.Warn("label cache unreadable", "lang", lang, "error", err)
		}
	}

	if opts.Fetcher == nil {
		return nil, fmt.Errorf("load %s labels: no fetcher configured", lang)
	}

	url := LabelsURL(opts.LabelsURL, lang)
	text, err := opts.Fetcher.GetText(ctx, url, "utf-8")
	if err != nil {
		logger.Error("fetching category labels failed", "lang", lang, "url", url, "error", err)
		return nil, fmt.Errorf("load %s labels: %w", lang, err)
	}

	labels := splitLabels(text)
	if opts.Store != nil {
		if err := opts.Store.Save(lang, labels); err != nil {
			logger.Warn("caching category labels failed", "lang", lang, "error", err)
		}
	}
	return labels, nil
}

// splitLabels trims every line and drops trailing blank lines. Interior
// blank lines are kept so positions stay aligned with the other language.
func splitLabels(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Categories returns the label list for lang. Any language other than
// English returns the Polish list.
func (r *Resolver) Categories(lang string) []string {
	if lang == LangEN {
		return r.en
	}
	return r.pl
}

// Translate maps a label in lang to its Polish label. Polish names pass
// through unchanged; English names are looked up by position. The second
// result is false when the name is unknown or the language unsupported.
func (r *Resolver) Translate(name, lang string) (string, bool) {
	switch lang {
	case LangPL:
		return name, true
	case LangEN:
		for i, label := range r.en {
			if label == name {
				if i < len(r.pl) {
					return r.pl[i], true
				}
				return "", false
			}
		}
	}
	return "", false
}

// CheckCategory reports whether m scores at least cf in any of the
// requested categories. Matching against manifest keys ignores case.
// Names that cannot be translated are skipped.
func (r *Resolver) CheckCategory(m *manifest.Manifest, categories []string, cf float64, lang string) bool {
	if m == nil || len(categories) == 0 {
		return false
	}

	for _, requested := range categories {
		label, ok := r.Translate(requested, lang)
		if !ok || label == "" {
			continue
		}
		for key, score := range m.Category {
			if strings.EqualFold(key, label) && float64(score) >= cf {
				return true
			}
		}
	}
	return false
}
