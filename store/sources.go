package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/ZaguanLabs/gotlm/segment"
)

// SourceParams describes an object submitted for translation.
type SourceParams struct {
	ContentType    string
	TranslationKey string
	Locale         string
	ContentJSON    string
	Segments       []segment.Value
}

// SourceSegment is a segment of a source with the rows it is stored in.
type SourceSegment struct {
	Value     segment.Value
	ContextID int64
	StringID  int64 // zero unless Value is a segment.StringValue
}

// SaveSource records a source snapshot and replaces its segment rows.
func (s *Store) SaveSource(ctx context.Context, p SourceParams) (Source, error) {
	var src Source
	err := s.WithTx(ctx, func(tx *Store) error {
		now := tx.now()
		if _, err := tx.q.ExecContext(ctx,
			`INSERT INTO translation_source (content_type, translation_key, locale, content_json, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (content_type, translation_key, locale) DO UPDATE SET
			     content_json = excluded.content_json,
			     updated_at = excluded.updated_at`,
			p.ContentType, p.TranslationKey, p.Locale, p.ContentJSON, now, now); err != nil {
			return fmt.Errorf("saving source: %w", err)
		}

		var err error
		src, err = tx.Source(ctx, p.ContentType, p.TranslationKey, p.Locale)
		if err != nil {
			return err
		}

		for _, table := range []string{"string_segment", "template_segment", "related_object_segment"} {
			if _, err := tx.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE source_id = ?`, src.ID); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		objectKey := ObjectKey(p.ContentType, p.TranslationKey)
		for pos, v := range p.Segments {
			if err := tx.insertSegment(ctx, src, objectKey, pos, v); err != nil {
				return fmt.Errorf("segment %q: %w", v.Path(), err)
			}
		}
		return nil
	})
	return src, err
}

func (s *Store) insertSegment(ctx context.Context, src Source, objectKey string, pos int, v segment.Value) error {
	c, err := s.GetOrCreateContext(ctx, objectKey, v.Path())
	if err != nil {
		return err
	}

	switch v := v.(type) {
	case segment.StringValue:
		str, err := s.GetOrCreateString(ctx, src.Locale, v.Source.HTMLWithIDs())
		if err != nil {
			return err
		}
		attrs, err := json.Marshal(v.Source.HTMLAttrs())
		if err != nil {
			return fmt.Errorf("encoding attrs: %w", err)
		}
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO string_segment (source_id, string_id, context_id, position, sort_order, attrs)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			src.ID, str.ID, c.ID, pos, v.Order(), string(attrs))
		return err
	case segment.TemplateValue:
		t, err := s.GetOrCreateTemplate(ctx, v.Format, v.Template, v.SegmentCount)
		if err != nil {
			return err
		}
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO template_segment (source_id, template_id, context_id, position, sort_order)
			 VALUES (?, ?, ?, ?, ?)`,
			src.ID, t.ID, c.ID, pos, v.Order())
		return err
	case segment.RelatedObjectValue:
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO related_object_segment (source_id, context_id, position, sort_order, content_type, translation_key)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			src.ID, c.ID, pos, v.Order(), v.ContentType, v.TranslationKey)
		return err
	default:
		return fmt.Errorf("unsupported segment type %T", v)
	}
}

const sourceColumns = `id, content_type, translation_key, locale, content_json, created_at, updated_at`

func scanSource(row scanner) (Source, error) {
	var src Source
	err := row.Scan(&src.ID, &src.ContentType, &src.TranslationKey, &src.Locale, &src.ContentJSON,
		&src.CreatedAt, &src.UpdatedAt)
	return src, notFound(err)
}

// Source returns the source of an object in locale.
func (s *Store) Source(ctx context.Context, contentType, translationKey, locale string) (Source, error) {
	return scanSource(s.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM translation_source
		 WHERE content_type = ? AND translation_key = ? AND locale = ?`,
		contentType, translationKey, locale))
}

// SourceByID returns a source.
func (s *Store) SourceByID(ctx context.Context, id int64) (Source, error) {
	return scanSource(s.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM translation_source WHERE id = ?`, id))
}

// LatestSource returns the most recently submitted source of an object in
// any locale.
func (s *Store) LatestSource(ctx context.Context, contentType, translationKey string) (Source, error) {
	return scanSource(s.q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM translation_source
		 WHERE content_type = ? AND translation_key = ?
		 ORDER BY updated_at DESC, id DESC LIMIT 1`,
		contentType, translationKey))
}

// Sources lists all sources, oldest first.
func (s *Store) Sources(ctx context.Context) ([]Source, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+sourceColumns+` FROM translation_source ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

type positioned struct {
	pos int
	seg SourceSegment
}

// SourceSegments rebuilds the segments of a source in the order they were
// saved.
func (s *Store) SourceSegments(ctx context.Context, sourceID int64) ([]SourceSegment, error) {
	var all []positioned

	strs, err := s.stringSegments(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	all = append(all, strs...)

	tmpls, err := s.templateSegments(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	all = append(all, tmpls...)

	rels, err := s.relatedSegments(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	all = append(all, rels...)

	slices.SortFunc(all, func(a, b positioned) int { return cmp.Compare(a.pos, b.pos) })
	out := make([]SourceSegment, len(all))
	for i, p := range all {
		out[i] = p.seg
	}
	return out, nil
}

func (s *Store) stringSegments(ctx context.Context, sourceID int64) ([]positioned, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT ss.position, ss.sort_order, ss.attrs, ss.string_id, ss.context_id, c.path, str.data
		 FROM string_segment ss
		 JOIN translation_context c ON c.id = ss.context_id
		 JOIN string str ON str.id = ss.string_id
		 WHERE ss.source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing string segments: %w", err)
	}
	defer rows.Close()

	var out []positioned
	for rows.Next() {
		var (
			pos, order        int
			attrs, path, data string
			stringID, ctxID   int64
		)
		if err := rows.Scan(&pos, &order, &attrs, &stringID, &ctxID, &path, &data); err != nil {
			return nil, fmt.Errorf("scanning string segment: %w", err)
		}
		snippet, err := htmlsnippet.FromHTMLWithIDs(data)
		if err != nil {
			return nil, fmt.Errorf("parsing string %d: %w", stringID, err)
		}
		var saved map[string][]html.Attribute
		if err := json.Unmarshal([]byte(attrs), &saved); err != nil {
			return nil, fmt.Errorf("decoding attrs of %q: %w", path, err)
		}
		v := segment.NewString(path, snippet.ReplaceHTMLAttrs(saved)).WithOrder(order)
		out = append(out, positioned{pos, SourceSegment{Value: v, ContextID: ctxID, StringID: stringID}})
	}
	return out, rows.Err()
}

func (s *Store) templateSegments(ctx context.Context, sourceID int64) ([]positioned, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT ts.position, ts.sort_order, ts.context_id, c.path, t.template_format, t.template, t.string_count
		 FROM template_segment ts
		 JOIN translation_context c ON c.id = ts.context_id
		 JOIN template t ON t.id = ts.template_id
		 WHERE ts.source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing template segments: %w", err)
	}
	defer rows.Close()

	var out []positioned
	for rows.Next() {
		var (
			pos, order, count      int
			ctxID                  int64
			path, format, template string
		)
		if err := rows.Scan(&pos, &order, &ctxID, &path, &format, &template, &count); err != nil {
			return nil, fmt.Errorf("scanning template segment: %w", err)
		}
		v := segment.NewTemplate(path, format, template, count).WithOrder(order)
		out = append(out, positioned{pos, SourceSegment{Value: v, ContextID: ctxID}})
	}
	return out, rows.Err()
}

func (s *Store) relatedSegments(ctx context.Context, sourceID int64) ([]positioned, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT rs.position, rs.sort_order, rs.context_id, c.path, rs.content_type, rs.translation_key
		 FROM related_object_segment rs
		 JOIN translation_context c ON c.id = rs.context_id
		 WHERE rs.source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing related object segments: %w", err)
	}
	defer rows.Close()

	var out []positioned
	for rows.Next() {
		var (
			pos, order     int
			ctxID          int64
			path, ct, tkey string
		)
		if err := rows.Scan(&pos, &order, &ctxID, &path, &ct, &tkey); err != nil {
			return nil, fmt.Errorf("scanning related object segment: %w", err)
		}
		v := segment.NewRelatedObject(path, ct, tkey).WithOrder(order)
		out = append(out, positioned{pos, SourceSegment{Value: v, ContextID: ctxID}})
	}
	return out, rows.Err()
}

const translationColumns = `id, uuid, source_id, target_locale, published_json, published_at, created_at`

func scanTranslation(row scanner) (Translation, error) {
	var t Translation
	err := row.Scan(&t.ID, &t.UUID, &t.SourceID, &t.TargetLocale, &t.PublishedJSON, &t.PublishedAt, &t.CreatedAt)
	return t, notFound(err)
}

// GetOrCreateTranslation returns the translation of a source into
// targetLocale, creating it with a fresh UUID if needed.
func (s *Store) GetOrCreateTranslation(ctx context.Context, sourceID int64, targetLocale string) (Translation, error) {
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO translation (uuid, source_id, target_locale, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (source_id, target_locale) DO NOTHING`,
		uuid.NewString(), sourceID, targetLocale, s.now()); err != nil {
		return Translation{}, fmt.Errorf("inserting translation: %w", err)
	}
	return scanTranslation(s.q.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM translation WHERE source_id = ? AND target_locale = ?`,
		sourceID, targetLocale))
}

// TranslationByUUID returns a translation.
func (s *Store) TranslationByUUID(ctx context.Context, id string) (Translation, error) {
	return scanTranslation(s.q.QueryRowContext(ctx,
		`SELECT `+translationColumns+` FROM translation WHERE uuid = ?`, id))
}

// Translations lists the translations of a source.
func (s *Store) Translations(ctx context.Context, sourceID int64) ([]Translation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+translationColumns+` FROM translation WHERE source_id = ? ORDER BY target_locale`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing translations: %w", err)
	}
	defer rows.Close()

	var out []Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetPublished stores the published snapshot of a translation.
func (s *Store) SetPublished(ctx context.Context, translationID int64, contentJSON string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE translation SET published_json = ?, published_at = ? WHERE id = ?`,
		contentJSON, s.now(), translationID)
	if err != nil {
		return fmt.Errorf("publishing translation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PublishedContent returns the last published snapshot of an object in
// locale.
func (s *Store) PublishedContent(ctx context.Context, contentType, translationKey, locale string) (string, error) {
	var data string
	err := s.q.QueryRowContext(ctx,
		`SELECT t.published_json FROM translation t
		 JOIN translation_source src ON src.id = t.source_id
		 WHERE src.content_type = ? AND src.translation_key = ? AND t.target_locale = ?
		   AND t.published_at IS NOT NULL
		 ORDER BY t.published_at DESC LIMIT 1`,
		contentType, translationKey, locale).Scan(&data)
	if err != nil {
		return "", notFound(err)
	}
	return data, nil
}

// Progress counts the string segments of a source and how many of them are
// translated into locale.
func (s *Store) Progress(ctx context.Context, sourceID int64, locale string) (Progress, error) {
	var p Progress
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(st.id),
		        COALESCE(SUM(st.has_error), 0)
		 FROM string_segment ss
		 LEFT JOIN string_translation st
		   ON st.string_id = ss.string_id AND st.context_id = ss.context_id AND st.locale = ?
		 WHERE ss.source_id = ?`,
		locale, sourceID).Scan(&p.Total, &p.Translated, &p.Errors)
	if err != nil {
		return Progress{}, fmt.Errorf("computing progress: %w", err)
	}
	return p, nil
}
