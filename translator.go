package gotlm

import (
	"context"
	"log/slog"
)

// TranslateRequest contains the parameters for a machine translation request.
type TranslateRequest struct {
	SourceLocale string
	TargetLocale string
	Texts        []string          // Distinct source strings (html with ids)
	Context      string            // Global context for all texts
	Glossary     map[string]string // Preferred translations for specific phrases
}

// MachineTranslator is the interface for machine translation backends.
// Implementations return a map from every source text to its translation.
type MachineTranslator interface {
	Translate(ctx context.Context, req TranslateRequest) (map[string]string, error)
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// BatchResult is the result of a batch translation.
type BatchResult struct {
	Translations    map[string]string // Source text to translated text
	TranslatedCount int               // Number of texts sent to the provider
	CachedCount     int               // Number of cache hits
	Total           int               // Number of distinct texts
}

// BatchTranslator sends distinct strings to a MachineTranslator in batches,
// serving repeated strings from a cache.
type BatchTranslator struct {
	provider          MachineTranslator
	cache             TranslationCache
	name              string
	batchSize         int
	parallelThreshold int
	context           string
	glossary          map[string]string
	logger            *slog.Logger
}

// BatchOption is a functional option for configuring the BatchTranslator.
type BatchOption func(*BatchTranslator)

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) BatchOption {
	return func(t *BatchTranslator) {
		t.cache = cache
	}
}

// WithProviderName sets the name recorded in cache keys and provenance.
func WithProviderName(name string) BatchOption {
	return func(t *BatchTranslator) {
		t.name = name
	}
}

// WithBatchSize sets the maximum number of texts per provider call.
func WithBatchSize(n int) BatchOption {
	return func(t *BatchTranslator) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithParallelThreshold sets the minimum number of texts for parallel cache lookups.
func WithParallelThreshold(n int) BatchOption {
	return func(t *BatchTranslator) {
		t.parallelThreshold = n
	}
}

// WithContext sets the global translation context.
func WithContext(ctx string) BatchOption {
	return func(t *BatchTranslator) {
		t.context = ctx
	}
}

// WithGlossary sets preferred translations for specific phrases.
func WithGlossary(glossary map[string]string) BatchOption {
	return func(t *BatchTranslator) {
		t.glossary = glossary
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BatchOption {
	return func(t *BatchTranslator) {
		t.logger = logger
	}
}

// NewBatchTranslator creates a new BatchTranslator for the given provider.
func NewBatchTranslator(provider MachineTranslator, opts ...BatchOption) *BatchTranslator {
	t := &BatchTranslator{
		provider:          provider,
		name:              "machine",
		batchSize:         50,
		parallelThreshold: 5,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the provider name used for provenance.
func (t *BatchTranslator) Name() string {
	return t.name
}

// Translate translates texts from sourceLocale to targetLocale.
// Texts in the same base language as the source are returned unchanged.
func (t *BatchTranslator) Translate(ctx context.Context, sourceLocale, targetLocale string, texts []string) (*BatchResult, error) {
	unique := dedupe(texts)
	result := &BatchResult{
		Translations: make(map[string]string, len(unique)),
		Total:        len(unique),
	}

	if len(unique) == 0 {
		return result, nil
	}

	if baseLanguage(sourceLocale) == baseLanguage(targetLocale) {
		for _, text := range unique {
			result.Translations[text] = text
		}
		return result, nil
	}

	keys := make(map[string]string, len(unique))
	for _, text := range unique {
		keys[text] = CacheKeyExtended(HashContent(text), sourceLocale, targetLocale, t.name)
	}

	var misses []string
	if t.cache != nil && len(unique) >= t.parallelThreshold {
		var hits map[string]string
		hits, misses = parallelCacheLookup(t.cache, unique, keys)
		for text, v := range hits {
			result.Translations[text] = v
		}
	} else {
		for _, text := range unique {
			if t.cache != nil {
				if cached, ok := t.cache.Get(keys[text]); ok {
					result.Translations[text] = cached
					continue
				}
			}
			misses = append(misses, text)
		}
	}
	result.CachedCount = len(unique) - len(misses)

	if len(misses) == 0 || t.provider == nil {
		return result, nil
	}

	for start := 0; start < len(misses); start += t.batchSize {
		end := min(start+t.batchSize, len(misses))
		chunk := misses[start:end]

		translated, err := t.provider.Translate(ctx, TranslateRequest{
			SourceLocale: sourceLocale,
			TargetLocale: targetLocale,
			Texts:        chunk,
			Context:      t.context,
			Glossary:     t.glossary,
		})
		if err != nil {
			return nil, err
		}

		found := 0
		for _, text := range chunk {
			if _, ok := translated[text]; ok {
				found++
			}
		}
		if found != len(chunk) {
			return nil, &CountMismatchError{Expected: len(chunk), Got: found}
		}

		for _, text := range chunk {
			value := translated[text]
			result.Translations[text] = value
			if t.cache != nil {
				if err := t.cache.Set(keys[text], value); err != nil {
					t.logger.Debug("caching machine translation failed", "error", err)
				}
			}
			result.TranslatedCount++
		}
	}

	t.logger.Debug("machine translated batch",
		"provider", t.name,
		"source", sourceLocale,
		"target", targetLocale,
		"translated", result.TranslatedCount,
		"cached", result.CachedCount)

	return result, nil
}

// dedupe removes duplicate texts, preserving first-seen order.
func dedupe(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out
}
