package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/ZaguanLabs/gotlm/store"
)

// ErrNoMachineTranslator is returned by MachineTranslate when the service
// was built without one.
var ErrNoMachineTranslator = errors.New("no machine translator configured")

// MachineResult summarises a machine translation run.
type MachineResult struct {
	Translated int `json:"translated"`
	Cached     int `json:"cached"`
	Skipped    int `json:"skipped"`
}

// MachineTranslate fills every untranslated string of a translation from
// the machine translator. Outputs that break the inline markup of their
// source are skipped.
func (s *Service) MachineTranslate(ctx context.Context, translationID, translatedBy string) (*MachineResult, error) {
	if s.mt == nil {
		return nil, ErrNoMachineTranslator
	}

	j, err := s.load(ctx, translationID)
	if err != nil {
		return nil, err
	}
	existing, err := s.existing(ctx, j)
	if err != nil {
		return nil, err
	}

	var pending []store.SourceSegment
	var texts []string
	for _, seg := range j.strings() {
		if _, ok := existing[keyOf(seg)]; ok {
			continue
		}
		pending = append(pending, seg)
		texts = append(texts, seg.Value.(segment.StringValue).Source.HTMLWithIDs())
	}
	result := &MachineResult{}
	if len(pending) == 0 {
		return result, nil
	}

	batch, err := s.mt.Translate(ctx, j.source.Locale, j.locale(), texts)
	if err != nil {
		return nil, fmt.Errorf("machine translating %s: %w", translationID, err)
	}
	result.Cached = batch.CachedCount

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		for i, seg := range pending {
			data, ok := batch.Translations[texts[i]]
			if !ok {
				result.Skipped++
				continue
			}
			_, err := s.save(ctx, tx, j, seg, Edit{
				Data:         data,
				Type:         store.TypeMachine,
				ToolName:     s.mt.Name(),
				TranslatedBy: translatedBy,
			})
			if err != nil {
				s.logger.Warn("discarding machine translation",
					"translation", translationID,
					"path", seg.Value.Path(),
					"error", err)
				result.Skipped++
				continue
			}
			result.Translated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("machine translated",
		"translation", translationID,
		"provider", s.mt.Name(),
		"translated", result.Translated,
		"cached", result.Cached,
		"skipped", result.Skipped)
	return result, nil
}
