package gotlm

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// GetLanguageName returns the English name for a locale code, used in MT prompts.
// Falls back to the code itself if it cannot be parsed.
func GetLanguageName(code string) string {
	tag, err := language.Parse(NormalizeLocale(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	if RTLLanguages[baseLanguage(code)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

// NormalizeLocale converts a locale code to BCP 47 form (e.g., "es_ES" → "es-ES").
func NormalizeLocale(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// baseLanguage extracts the lowercase base language (e.g., "pt" from "pt_BR").
func baseLanguage(code string) string {
	code = NormalizeLocale(code)
	base, _, _ := strings.Cut(code, "-")
	return strings.ToLower(base)
}

// LocaleResolver maps requested locale codes onto the configured set of
// supported locales ("fr-CA" resolves to "fr" when only "fr" is configured).
// Results are cached until Invalidate is called with a new configuration.
type LocaleResolver struct {
	mu        sync.RWMutex
	codes     []string
	matcher   language.Matcher
	resolved  map[string]string
	unmatched map[string]bool
}

// NewLocaleResolver creates a resolver for the given supported locale codes.
func NewLocaleResolver(codes []string) (*LocaleResolver, error) {
	r := &LocaleResolver{}
	if err := r.Invalidate(codes); err != nil {
		return nil, err
	}
	return r, nil
}

// Invalidate replaces the supported locales and drops every cached result.
// Call it whenever the locale configuration changes.
func (r *LocaleResolver) Invalidate(codes []string) error {
	if len(codes) == 0 {
		return fmt.Errorf("no supported locales configured")
	}

	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		tag, err := language.Parse(NormalizeLocale(code))
		if err != nil {
			return fmt.Errorf("parsing locale %q: %w", code, err)
		}
		tags = append(tags, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append([]string(nil), codes...)
	r.matcher = language.NewMatcher(tags)
	r.resolved = make(map[string]string)
	r.unmatched = make(map[string]bool)
	return nil
}

// Resolve returns the supported locale code best matching code.
// The second result is false when no supported locale matches.
func (r *LocaleResolver) Resolve(code string) (string, bool) {
	r.mu.RLock()
	if v, ok := r.resolved[code]; ok {
		r.mu.RUnlock()
		return v, true
	}
	if r.unmatched[code] {
		r.mu.RUnlock()
		return "", false
	}
	matcher := r.matcher
	codes := r.codes
	r.mu.RUnlock()

	tag, err := language.Parse(NormalizeLocale(code))
	result, found := "", false
	if err == nil {
		_, index, confidence := matcher.Match(tag)
		if confidence != language.No {
			result, found = codes[index], true
		}
	}

	r.mu.Lock()
	if found {
		r.resolved[code] = result
	} else {
		r.unmatched[code] = true
	}
	r.mu.Unlock()

	return result, found
}

// Supported returns the configured locale codes.
func (r *LocaleResolver) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.codes...)
}
