package store

import (
	"context"
	"fmt"

	"github.com/ZaguanLabs/gotlm"
)

// ObjectKey identifies an object across locales.
func ObjectKey(contentType, translationKey string) string {
	return contentType + ":" + translationKey
}

// GetOrCreateString returns the String for data in locale, inserting it if
// it does not exist yet.
func (s *Store) GetOrCreateString(ctx context.Context, locale, data string) (String, error) {
	hash := gotlm.HashContent(data)
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO string (locale, data_hash, data) VALUES (?, ?, ?)
		 ON CONFLICT (locale, data_hash) DO NOTHING`,
		locale, hash, data); err != nil {
		return String{}, fmt.Errorf("inserting string: %w", err)
	}

	var str String
	err := s.q.QueryRowContext(ctx,
		`SELECT id, locale, data_hash, data FROM string WHERE locale = ? AND data_hash = ?`,
		locale, hash).Scan(&str.ID, &str.Locale, &str.DataHash, &str.Data)
	if err != nil {
		return String{}, fmt.Errorf("selecting string: %w", notFound(err))
	}
	return str, nil
}

// StringByID returns a String.
func (s *Store) StringByID(ctx context.Context, id int64) (String, error) {
	var str String
	err := s.q.QueryRowContext(ctx,
		`SELECT id, locale, data_hash, data FROM string WHERE id = ?`, id,
	).Scan(&str.ID, &str.Locale, &str.DataHash, &str.Data)
	if err != nil {
		return String{}, notFound(err)
	}
	return str, nil
}

// GetOrCreateContext returns the Context for path inside an object.
func (s *Store) GetOrCreateContext(ctx context.Context, objectKey, path string) (Context, error) {
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO translation_context (object_key, path) VALUES (?, ?)
		 ON CONFLICT (object_key, path) DO NOTHING`,
		objectKey, path); err != nil {
		return Context{}, fmt.Errorf("inserting context: %w", err)
	}

	var c Context
	err := s.q.QueryRowContext(ctx,
		`SELECT id, object_key, path FROM translation_context WHERE object_key = ? AND path = ?`,
		objectKey, path).Scan(&c.ID, &c.ObjectKey, &c.Path)
	if err != nil {
		return Context{}, fmt.Errorf("selecting context: %w", notFound(err))
	}
	return c, nil
}

// GetOrCreateTemplate returns the Template with the given body, inserting it
// if needed. Templates are shared between sources.
func (s *Store) GetOrCreateTemplate(ctx context.Context, format, template string, stringCount int) (Template, error) {
	hash := gotlm.HashContent(format, template)
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO template (template_format, template, template_hash, string_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT (template_hash) DO NOTHING`,
		format, template, hash, stringCount); err != nil {
		return Template{}, fmt.Errorf("inserting template: %w", err)
	}

	var t Template
	err := s.q.QueryRowContext(ctx,
		`SELECT id, template_format, template, template_hash, string_count FROM template WHERE template_hash = ?`,
		hash).Scan(&t.ID, &t.Format, &t.Template, &t.Hash, &t.StringCount)
	if err != nil {
		return Template{}, fmt.Errorf("selecting template: %w", notFound(err))
	}
	return t, nil
}

// StringTranslationParams describes a translation to record.
type StringTranslationParams struct {
	StringID        int64
	ContextID       int64
	Locale          string
	Data            string
	TranslationType string
	ToolName        string
	TranslatedBy    string
}

// SaveStringTranslation inserts or replaces the translation of a string in
// a context. Saving clears any error previously recorded on it.
func (s *Store) SaveStringTranslation(ctx context.Context, p StringTranslationParams) (StringTranslation, error) {
	now := s.now()
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO string_translation
		     (string_id, locale, context_id, data, translation_type, tool_name, last_translated_by,
		      has_error, field_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)
		 ON CONFLICT (string_id, locale, context_id) DO UPDATE SET
		     data = excluded.data,
		     translation_type = excluded.translation_type,
		     tool_name = excluded.tool_name,
		     last_translated_by = excluded.last_translated_by,
		     has_error = 0,
		     field_error = '',
		     updated_at = excluded.updated_at`,
		p.StringID, p.Locale, p.ContextID, p.Data, p.TranslationType, p.ToolName, p.TranslatedBy,
		now, now); err != nil {
		return StringTranslation{}, fmt.Errorf("saving string translation: %w", err)
	}
	return s.StringTranslation(ctx, p.StringID, p.ContextID, p.Locale)
}

const stringTranslationColumns = `st.id, st.string_id, st.context_id, st.locale, st.data, st.translation_type,
	st.tool_name, st.last_translated_by, st.has_error, st.field_error, st.created_at, st.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStringTranslation(row scanner) (StringTranslation, error) {
	var st StringTranslation
	err := row.Scan(&st.ID, &st.StringID, &st.ContextID, &st.Locale, &st.Data, &st.TranslationType,
		&st.ToolName, &st.LastTranslatedBy, &st.HasError, &st.FieldError, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// StringTranslation returns the translation of a string in a context.
func (s *Store) StringTranslation(ctx context.Context, stringID, contextID int64, locale string) (StringTranslation, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+stringTranslationColumns+` FROM string_translation st
		 WHERE st.string_id = ? AND st.context_id = ? AND st.locale = ?`,
		stringID, contextID, locale)
	st, err := scanStringTranslation(row)
	if err != nil {
		return StringTranslation{}, notFound(err)
	}
	return st, nil
}

// StringTranslations returns the translations in locale of every string
// segment of a source.
func (s *Store) StringTranslations(ctx context.Context, sourceID int64, locale string) ([]StringTranslation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+stringTranslationColumns+` FROM string_translation st
		 WHERE st.locale = ? AND EXISTS (
		     SELECT 1 FROM string_segment ss
		     WHERE ss.source_id = ? AND ss.string_id = st.string_id AND ss.context_id = st.context_id)
		 ORDER BY st.id`,
		locale, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing string translations: %w", err)
	}
	defer rows.Close()

	var out []StringTranslation
	for rows.Next() {
		st, err := scanStringTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning string translation: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// MarkError flags translations that produced an invalid field value.
func (s *Store) MarkError(ctx context.Context, ids []int64, message string) error {
	for _, id := range ids {
		if _, err := s.q.ExecContext(ctx,
			`UPDATE string_translation SET has_error = 1, field_error = ? WHERE id = ?`,
			message, id); err != nil {
			return fmt.Errorf("marking translation %d: %w", id, err)
		}
	}
	return nil
}

// ClearErrors resets the error flags of every translation in locale that
// belongs to a source.
func (s *Store) ClearErrors(ctx context.Context, sourceID int64, locale string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE string_translation SET has_error = 0, field_error = ''
		 WHERE locale = ? AND id IN (
		     SELECT st.id FROM string_translation st
		     JOIN string_segment ss ON ss.string_id = st.string_id AND ss.context_id = st.context_id
		     WHERE ss.source_id = ?)`,
		locale, sourceID)
	if err != nil {
		return fmt.Errorf("clearing errors: %w", err)
	}
	return nil
}
