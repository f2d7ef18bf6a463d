package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/store"
)

// PublishResult is a published translation.
type PublishResult struct {
	Instance content.Instance
	// FieldErrors lists the fields that failed validation and were
	// published with their source value instead.
	FieldErrors []*gotlm.FieldValidationError
}

// Publish builds the translated object from the source snapshot and the
// saved string translations, and stores it as the translation's published
// snapshot.
//
// The target starts from the last published snapshot, or a copy of the
// source, and receives the synchronised fields before segments are
// ingested. A translated field that fails validation is reverted to the
// source value and the strings that produced it are flagged with the
// error. Publishing continues with the remaining fields.
func (s *Service) Publish(ctx context.Context, translationID string) (*PublishResult, error) {
	j, err := s.load(ctx, translationID)
	if err != nil {
		return nil, err
	}

	original, err := s.schema.DecodeObject([]byte(j.source.ContentJSON))
	if err != nil {
		return nil, fmt.Errorf("decoding source %d: %w", j.source.ID, err)
	}
	target, err := s.target(j, original)
	if err != nil {
		return nil, err
	}
	content.CopySynchronized(original, target)

	existing, err := s.existing(ctx, j)
	if err != nil {
		return nil, err
	}
	segs, err := s.translatedSegments(j, existing)
	if err != nil {
		return nil, err
	}

	if err := s.ingester.Ingest(ctx, original, target, j.source.Locale, j.locale(), segs); err != nil {
		return nil, fmt.Errorf("ingesting translation %s: %w", translationID, err)
	}

	result := &PublishResult{Instance: target}
	marks := make(map[string][]int64)
	for _, f := range target.Model().Fields {
		if !f.IsTranslated(target) {
			continue
		}
		err := f.Validate(target.Value(f.Name))
		var fieldErr *gotlm.FieldValidationError
		if !errors.As(err, &fieldErr) {
			continue
		}
		s.logger.Warn("translated field failed validation, publishing source value",
			"translation", translationID,
			"field", f.Name,
			"error", fieldErr.Message)
		target.SetValue(f.Name, content.Clone(original.Value(f.Name), target.Locale()))
		result.FieldErrors = append(result.FieldErrors, fieldErr)
		marks[fieldErr.Message] = append(marks[fieldErr.Message], contributors(j, existing, f.Name)...)
	}

	data, err := content.EncodeObject(target)
	if err != nil {
		return nil, fmt.Errorf("encoding translation %s: %w", translationID, err)
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.ClearErrors(ctx, j.source.ID, j.locale()); err != nil {
			return err
		}
		for msg, ids := range marks {
			if err := tx.MarkError(ctx, ids, msg); err != nil {
				return err
			}
		}
		return tx.SetPublished(ctx, j.translation.ID, string(data))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("published translation",
		"translation", translationID,
		"content_type", original.Model().Name,
		"translation_key", original.TranslationKey(),
		"locale", j.locale(),
		"field_errors", len(result.FieldErrors))
	return result, nil
}

// target returns the object translations are ingested into.
func (s *Service) target(j *job, original content.Instance) (content.Instance, error) {
	if j.translation.PublishedJSON != "" {
		obj, err := s.schema.DecodeObject([]byte(j.translation.PublishedJSON))
		if err != nil {
			return nil, fmt.Errorf("decoding published translation %s: %w", j.translation.UUID, err)
		}
		return obj, nil
	}
	return original.CopyForLocale(j.locale()), nil
}

// translatedSegments attaches the saved translations to the string
// segments of a job according to the missing translation policy.
func (s *Service) translatedSegments(j *job, existing map[stringKey]store.StringTranslation) ([]segment.Value, error) {
	out := make([]segment.Value, 0, len(j.segments))
	for _, seg := range j.segments {
		v, ok := seg.Value.(segment.StringValue)
		if !ok {
			out = append(out, seg.Value)
			continue
		}

		tr, found := existing[keyOf(seg)]
		if !found {
			if s.policy == RequireTranslation {
				return nil, &gotlm.MissingTranslationError{
					Path:   v.Path(),
					Locale: j.locale(),
					Source: v.Source.HTMLWithIDs(),
				}
			}
			out = append(out, v)
			continue
		}

		snippet, err := parseTranslation(v, tr.Data)
		if err != nil {
			return nil, fmt.Errorf("translation of %q: %w", v.Path(), err)
		}
		out = append(out, v.WithTranslation(snippet))
	}
	return out, nil
}

// contributors returns the ids of the string translations inside field.
func contributors(j *job, existing map[stringKey]store.StringTranslation, field string) []int64 {
	var ids []int64
	for _, seg := range j.strings() {
		path := seg.Value.Path()
		if path != field && !strings.HasPrefix(path, field+segment.Separator) {
			continue
		}
		if tr, ok := existing[keyOf(seg)]; ok {
			ids = append(ids, tr.ID)
		}
	}
	return ids
}
