package collect

import (
	"fmt"
	"strings"

	"github.com/28jackiiee/video-scraping/models"
	"github.com/pemistahl/lingua-go"
)

// Any rejects an item when at least one of filters rejects it. Nil filters are
// skipped.
func Any(filters ...FilterFunc) FilterFunc {
	var active []FilterFunc
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(item models.CandidateItem) bool {
		for _, f := range active {
			if f(item) {
				return true
			}
		}
		return false
	}
}

// TitleExcludes rejects items whose title contains any of the terms, ignoring
// case. Blank terms are dropped.
func TitleExcludes(terms ...string) FilterFunc {
	var lowered []string
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	if len(lowered) == 0 {
		return nil
	}
	return func(item models.CandidateItem) bool {
		title := strings.ToLower(item.Title)
		for _, t := range lowered {
			if strings.Contains(title, t) {
				return true
			}
		}
		return false
	}
}

// DurationBounds rejects items whose known duration lies outside [lo, hi].
// A non-positive bound is open. Items without a duration pass.
func DurationBounds(lo, hi float64) FilterFunc {
	if lo <= 0 && hi <= 0 {
		return nil
	}
	return func(item models.CandidateItem) bool {
		d, ok := item.Duration()
		if !ok {
			return false
		}
		if lo > 0 && d < lo {
			return true
		}
		return hi > 0 && d > hi
	}
}

// LanguageDetector is the subset of lingua.LanguageDetector used for titles.
type LanguageDetector interface {
	DetectLanguageOf(text string) (lingua.Language, bool)
}

// NewLanguageDetector builds a low-accuracy detector over all languages, which
// is sufficient for short stock titles.
func NewLanguageDetector() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		WithLowAccuracyMode().
		Build()
}

// ParseLanguages maps ISO 639-1 codes such as "en" to lingua languages.
func ParseLanguages(codes ...string) ([]lingua.Language, error) {
	var out []lingua.Language
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		found := false
		for _, lang := range lingua.AllLanguages() {
			if strings.EqualFold(lang.IsoCode639_1().String(), code) {
				out = append(out, lang)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown language code %q", ErrInvalidRequest, code)
		}
	}
	return out, nil
}

// TitleLanguage rejects items whose title is confidently detected as a
// language outside allowed. Titles the detector cannot place pass.
func TitleLanguage(detector LanguageDetector, allowed ...lingua.Language) FilterFunc {
	if detector == nil || len(allowed) == 0 {
		return nil
	}
	set := make(map[lingua.Language]struct{}, len(allowed))
	for _, l := range allowed {
		set[l] = struct{}{}
	}
	return func(item models.CandidateItem) bool {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			return false
		}
		lang, ok := detector.DetectLanguageOf(title)
		if !ok {
			return false
		}
		_, keep := set[lang]
		return !keep
	}
}
