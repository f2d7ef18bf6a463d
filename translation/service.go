// Package translation runs translation jobs: it submits content to the
// translation memory, fills in strings by hand, machine or PO file, and
// publishes translated objects.
package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/cache"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/extract"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/ZaguanLabs/gotlm/ingest"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/store"
)

// MissingPolicy decides what publishing does with untranslated strings.
type MissingPolicy int

const (
	// FallbackToSource publishes the source text.
	FallbackToSource MissingPolicy = iota
	// RequireTranslation fails with a MissingTranslationError.
	RequireTranslation
)

func (p MissingPolicy) String() string {
	if p == RequireTranslation {
		return "require"
	}
	return "fallback"
}

// ParseMissingPolicy parses "fallback" or "require".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(s) {
	case "", "fallback":
		return FallbackToSource, nil
	case "require":
		return RequireTranslation, nil
	}
	return 0, fmt.Errorf("unknown missing translation policy %q", s)
}

// Service coordinates the store, the content schema and the optional
// machine translator and cache.
type Service struct {
	store    *store.Store
	schema   *content.Schema
	cache    cache.TranslationCache
	mt       *gotlm.BatchTranslator
	policy   MissingPolicy
	locales  *gotlm.LocaleResolver
	logger   *slog.Logger
	ingester *ingest.Ingester
}

// Option configures a Service.
type Option func(*Service)

// WithCache reads and writes string translations through c.
func WithCache(c cache.TranslationCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMachineTranslator enables MachineTranslate.
func WithMachineTranslator(bt *gotlm.BatchTranslator) Option {
	return func(s *Service) { s.mt = bt }
}

func WithMissingPolicy(p MissingPolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLocales restricts target locales to those r supports. Requested
// codes are mapped onto the supported code, so "fr-CA" opens an "fr"
// translation when only "fr" is configured.
func WithLocales(r *gotlm.LocaleResolver) Option {
	return func(s *Service) { s.locales = r }
}

// ErrNotTranslatable is returned when submitting an object whose model is
// not translatable.
var ErrNotTranslatable = errors.New("model is not translatable")

// ErrUnsupportedLocale is returned when a target locale matches no
// configured locale.
var ErrUnsupportedLocale = errors.New("unsupported locale")

// targetLocales resolves and dedupes the requested target locales,
// dropping the source locale.
func (s *Service) targetLocales(source string, requested []string) ([]string, error) {
	var out []string
	seen := map[string]bool{source: true}
	for _, code := range requested {
		locale := code
		if s.locales != nil {
			var ok bool
			if locale, ok = s.locales.Resolve(code); !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocale, code)
			}
		}
		if !seen[locale] {
			seen[locale] = true
			out = append(out, locale)
		}
	}
	return out, nil
}

// NewService returns a service over st and schema.
func NewService(st *store.Store, schema *content.Schema, opts ...Option) *Service {
	s := &Service{
		store:  st,
		schema: schema,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ingester = ingest.New(s.Resolver(), ingest.WithLogger(s.logger))
	return s
}

// Schema returns the content schema.
func (s *Service) Schema() *content.Schema {
	return s.schema
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Submission is the result of submitting an object.
type Submission struct {
	Source       store.Source
	Translations []store.Translation
	Segments     int
}

// Submit extracts the segments of inst, records them as the object's
// source in its locale and opens a translation for each target locale.
// Submitting again refreshes the source and keeps existing translations.
func (s *Service) Submit(ctx context.Context, inst content.Instance, targetLocales ...string) (*Submission, error) {
	if !inst.Model().Translatable {
		return nil, fmt.Errorf("%w: %s", ErrNotTranslatable, inst.Model().Name)
	}

	segs, err := extract.Segments(inst)
	if err != nil {
		return nil, fmt.Errorf("extracting %s %s: %w", inst.Model().Name, inst.TranslationKey(), err)
	}
	data, err := content.EncodeObject(inst)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", inst.Model().Name, inst.TranslationKey(), err)
	}
	locales, err := s.targetLocales(inst.Locale(), targetLocales)
	if err != nil {
		return nil, err
	}

	sub := &Submission{Segments: len(segs)}
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		src, err := tx.SaveSource(ctx, store.SourceParams{
			ContentType:    inst.Model().Name,
			TranslationKey: inst.TranslationKey(),
			Locale:         inst.Locale(),
			ContentJSON:    string(data),
			Segments:       segs,
		})
		if err != nil {
			return err
		}
		sub.Source = src

		for _, locale := range locales {
			t, err := tx.GetOrCreateTranslation(ctx, src.ID, locale)
			if err != nil {
				return err
			}
			sub.Translations = append(sub.Translations, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("submitted source",
		"content_type", inst.Model().Name,
		"translation_key", inst.TranslationKey(),
		"locale", inst.Locale(),
		"segments", len(segs),
		"translations", len(sub.Translations))
	return sub, nil
}

// SubmitWithDependencies submits the translatable objects inst refers to
// before inst itself, so that they can be translated first. Related
// objects resolver cannot find are skipped.
func (s *Service) SubmitWithDependencies(ctx context.Context, inst content.Instance, resolver content.Resolver, targetLocales ...string) ([]*Submission, error) {
	refs, err := extract.Dependencies(ctx, inst, resolver)
	if err != nil {
		return nil, err
	}

	var subs []*Submission
	for _, ref := range refs {
		dep, err := resolver.Resolve(ctx, ref.ContentType, ref.TranslationKey, inst.Locale())
		if errors.Is(err, content.ErrNotFound) {
			s.logger.Debug("dependency not found, skipping",
				"content_type", ref.ContentType, "translation_key", ref.TranslationKey)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !dep.Model().Translatable {
			continue
		}
		sub, err := s.Submit(ctx, dep, targetLocales...)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	sub, err := s.Submit(ctx, inst, targetLocales...)
	if err != nil {
		return nil, err
	}
	return append(subs, sub), nil
}

// job is a translation with its source and segments loaded.
type job struct {
	translation store.Translation
	source      store.Source
	segments    []store.SourceSegment
}

func (s *Service) load(ctx context.Context, translationID string) (*job, error) {
	t, err := s.store.TranslationByUUID(ctx, translationID)
	if err != nil {
		return nil, fmt.Errorf("translation %s: %w", translationID, err)
	}
	src, err := s.store.SourceByID(ctx, t.SourceID)
	if err != nil {
		return nil, fmt.Errorf("source of translation %s: %w", translationID, err)
	}
	segs, err := s.store.SourceSegments(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	return &job{translation: t, source: src, segments: segs}, nil
}

func (j *job) locale() string { return j.translation.TargetLocale }

// stringKey identifies a string translation within a job. Strings of one
// rich text field share a context and are told apart by their text.
type stringKey struct {
	stringID, contextID int64
}

func keyOf(seg store.SourceSegment) stringKey {
	return stringKey{seg.StringID, seg.ContextID}
}

func (j *job) strings() []store.SourceSegment {
	var out []store.SourceSegment
	for _, seg := range j.segments {
		if _, ok := seg.Value.(segment.StringValue); ok {
			out = append(out, seg)
		}
	}
	return out
}

// Translation returns a translation by UUID.
func (s *Service) Translation(ctx context.Context, translationID string) (store.Translation, error) {
	return s.store.TranslationByUUID(ctx, translationID)
}

// Progress counts the translated strings of a translation.
func (s *Service) Progress(ctx context.Context, translationID string) (store.Progress, error) {
	t, err := s.store.TranslationByUUID(ctx, translationID)
	if err != nil {
		return store.Progress{}, fmt.Errorf("translation %s: %w", translationID, err)
	}
	return s.store.Progress(ctx, t.SourceID, t.TargetLocale)
}

// StringStatus is one string of a translation as shown to translators.
type StringStatus struct {
	Path        string `json:"path"`
	Source      string `json:"source"`
	Translation string `json:"translation,omitempty"`
	Type        string `json:"type,omitempty"`
	HasError    bool   `json:"has_error,omitempty"`
	FieldError  string `json:"field_error,omitempty"`
}

// Strings lists the strings of a translation with their current
// translations.
func (s *Service) Strings(ctx context.Context, translationID string) ([]StringStatus, error) {
	j, err := s.load(ctx, translationID)
	if err != nil {
		return nil, err
	}
	existing, err := s.existing(ctx, j)
	if err != nil {
		return nil, err
	}

	var out []StringStatus
	for _, seg := range j.strings() {
		v := seg.Value.(segment.StringValue)
		st := StringStatus{Path: v.Path(), Source: v.Source.HTMLWithIDs()}
		if tr, ok := existing[keyOf(seg)]; ok {
			st.Translation = tr.Data
			st.Type = tr.TranslationType
			st.HasError = tr.HasError
			st.FieldError = tr.FieldError
		}
		out = append(out, st)
	}
	return out, nil
}

// existing loads the saved translations of a job and refreshes the cache
// with them.
func (s *Service) existing(ctx context.Context, j *job) (map[stringKey]store.StringTranslation, error) {
	rows, err := s.store.StringTranslations(ctx, j.source.ID, j.locale())
	if err != nil {
		return nil, err
	}

	byKey := make(map[stringKey]store.StringTranslation, len(rows))
	for _, r := range rows {
		byKey[stringKey{r.StringID, r.ContextID}] = r
	}
	if s.cache != nil {
		for _, seg := range j.strings() {
			if r, ok := byKey[keyOf(seg)]; ok {
				s.cacheSet(seg, j.locale(), r.Data)
			}
		}
	}
	return byKey, nil
}

func cacheKey(seg store.SourceSegment, locale string) string {
	v := seg.Value.(segment.StringValue)
	return gotlm.TranslationKey(gotlm.HashContent(v.Source.HTMLWithIDs()), v.Path(), locale)
}

func (s *Service) cacheSet(seg store.SourceSegment, locale, data string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(cacheKey(seg, locale), data); err != nil {
		s.logger.Debug("caching string translation failed", "path", seg.Value.Path(), "error", err)
	}
}

// lookup returns the translation of one string, trying the cache before
// the store.
func (s *Service) lookup(ctx context.Context, j *job, seg store.SourceSegment) (string, bool, error) {
	if s.cache != nil {
		if data, ok := s.cache.Get(cacheKey(seg, j.locale())); ok {
			return data, true, nil
		}
	}
	st, err := s.store.StringTranslation(ctx, seg.StringID, seg.ContextID, j.locale())
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.cacheSet(seg, j.locale(), st.Data)
	return st.Data, true, nil
}

// parseTranslation checks that a translator's HTML only uses the inline
// elements of the source string.
func parseTranslation(source segment.StringValue, data string) (htmlsnippet.Snippet, error) {
	snippet, err := htmlsnippet.FromHTMLWithIDs(data)
	if err != nil {
		return htmlsnippet.Snippet{}, err
	}
	return snippet.RestoreAttrs(source.Source)
}

// Edit is a translation supplied for one string.
type Edit struct {
	Path string
	// Source is the source string as HTML with ids. It may be left empty
	// when Path holds a single string.
	Source       string
	Data         string // HTML with ids
	Type         string // store.TypeManual or store.TypeMachine
	ToolName     string
	TranslatedBy string
}

// SaveString records a translation for the string at edit.Path.
func (s *Service) SaveString(ctx context.Context, translationID string, edit Edit) (store.StringTranslation, error) {
	j, err := s.load(ctx, translationID)
	if err != nil {
		return store.StringTranslation{}, err
	}
	var matches []store.SourceSegment
	seen := make(map[stringKey]bool)
	for _, seg := range j.strings() {
		if seg.Value.Path() != edit.Path || seen[keyOf(seg)] {
			continue
		}
		if edit.Source != "" && seg.Value.(segment.StringValue).Source.HTMLWithIDs() != edit.Source {
			continue
		}
		seen[keyOf(seg)] = true
		matches = append(matches, seg)
	}
	switch len(matches) {
	case 0:
		return store.StringTranslation{}, fmt.Errorf("translation %s has no string at %q: %w", translationID, edit.Path, store.ErrNotFound)
	case 1:
		return s.save(ctx, s.store, j, matches[0], edit)
	}
	return store.StringTranslation{}, fmt.Errorf("translation %s has %d strings at %q: set the source string", translationID, len(matches), edit.Path)
}

func (s *Service) save(ctx context.Context, st *store.Store, j *job, seg store.SourceSegment, edit Edit) (store.StringTranslation, error) {
	source := seg.Value.(segment.StringValue)
	if _, err := parseTranslation(source, edit.Data); err != nil {
		return store.StringTranslation{}, fmt.Errorf("translation of %q: %w", source.Path(), err)
	}
	if edit.Type == "" {
		edit.Type = store.TypeManual
	}

	saved, err := st.SaveStringTranslation(ctx, store.StringTranslationParams{
		StringID:        seg.StringID,
		ContextID:       seg.ContextID,
		Locale:          j.locale(),
		Data:            edit.Data,
		TranslationType: edit.Type,
		ToolName:        edit.ToolName,
		TranslatedBy:    edit.TranslatedBy,
	})
	if err != nil {
		return store.StringTranslation{}, err
	}
	s.cacheSet(seg, j.locale(), edit.Data)
	return saved, nil
}
