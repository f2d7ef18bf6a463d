package translation

import (
	"context"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/pofile"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/store"
)

// ExportPO returns the strings of a translation as a PO file. Strings
// without a translation have an empty msgstr.
func (s *Service) ExportPO(ctx context.Context, translationID string) (*pofile.File, error) {
	j, err := s.load(ctx, translationID)
	if err != nil {
		return nil, err
	}

	f := pofile.New(j.translation.UUID, j.source.Locale, j.locale())
	for _, seg := range j.strings() {
		data, _, err := s.lookup(ctx, j, seg)
		if err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, pofile.Entry{
			Context: seg.Value.Path(),
			ID:      seg.Value.(segment.StringValue).Source.HTMLWithIDs(),
			Str:     data,
		})
	}
	return f, nil
}

// ImportResult summarises a PO import.
type ImportResult struct {
	Imported int `json:"imported"`
	Missing  int `json:"missing"`
	Invalid  int `json:"invalid"`
	Unknown  int `json:"unknown"`
}

// ImportPO saves the translated entries of f as manual translations.
// Entries are matched to strings by msgctxt and msgid; entries matching
// nothing are counted as Unknown and ignored. When strings are left
// untranslated the saved entries are kept and a MissingSegmentsError is
// returned with the result.
func (s *Service) ImportPO(ctx context.Context, translationID string, f *pofile.File, translatedBy string) (*ImportResult, error) {
	if err := f.CheckTranslationID(translationID); err != nil {
		return nil, err
	}

	j, err := s.load(ctx, translationID)
	if err != nil {
		return nil, err
	}

	type key struct{ ctx, id string }
	entries := make(map[key]pofile.Entry, len(f.Entries))
	for _, e := range f.Entries {
		entries[key{e.Context, e.ID}] = e
	}

	result := &ImportResult{}
	matched := make(map[key]bool, len(entries))
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		for _, seg := range j.strings() {
			k := key{seg.Value.Path(), seg.Value.(segment.StringValue).Source.HTMLWithIDs()}
			e, ok := entries[k]
			if ok {
				matched[k] = true
			}
			if !ok || !e.Translated() {
				result.Missing++
				continue
			}
			if _, err := s.save(ctx, tx, j, seg, Edit{
				Data:         e.Str,
				Type:         store.TypeManual,
				ToolName:     "PO file",
				TranslatedBy: translatedBy,
			}); err != nil {
				s.logger.Warn("rejecting PO entry", "translation", translationID, "path", k.ctx, "error", err)
				result.Invalid++
				continue
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Unknown = len(entries) - len(matched)

	s.logger.Info("imported PO file",
		"translation", translationID,
		"imported", result.Imported,
		"missing", result.Missing,
		"invalid", result.Invalid,
		"unknown", result.Unknown)

	if result.Missing > 0 {
		total := len(j.strings())
		return result, &gotlm.MissingSegmentsError{
			Target:   "translation " + translationID,
			Expected: total,
			Got:      total - result.Missing,
		}
	}
	return result, nil
}
