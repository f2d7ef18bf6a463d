package segment

import (
	"encoding/json"
	"fmt"

	"github.com/ZaguanLabs/gotlm/htmlsnippet"
)

// Record types.
const (
	TypeString   = "string"
	TypeTemplate = "template"
	TypeRelated  = "related"
)

// Record is the serialised form of a Value.
type Record struct {
	Type           string  `json:"type"`
	Path           string  `json:"path"`
	Order          int     `json:"order"`
	Source         string  `json:"source,omitempty"`
	Translation    *string `json:"translation,omitempty"`
	Format         string  `json:"format,omitempty"`
	Template       string  `json:"template,omitempty"`
	SegmentCount   int     `json:"segment_count,omitempty"`
	ContentType    string  `json:"content_type,omitempty"`
	TranslationKey string  `json:"translation_key,omitempty"`
}

// ToRecord converts v to its serialised form.
func ToRecord(v Value) Record {
	r := Record{Path: v.Path(), Order: v.Order()}
	switch v := v.(type) {
	case StringValue:
		r.Type = TypeString
		r.Source = v.Source.HTML()
		if v.Translation != nil {
			t := v.Translation.HTML()
			r.Translation = &t
		}
	case TemplateValue:
		r.Type = TypeTemplate
		r.Format = v.Format
		r.Template = v.Template
		r.SegmentCount = v.SegmentCount
	case RelatedObjectValue:
		r.Type = TypeRelated
		r.ContentType = v.ContentType
		r.TranslationKey = v.TranslationKey
	}
	return r
}

// Value converts the record back into a segment value.
func (r Record) Value() (Value, error) {
	switch r.Type {
	case TypeString:
		v, err := StringFromHTML(r.Path, r.Source)
		if err != nil {
			return nil, err
		}
		if r.Translation != nil {
			t, err := htmlsnippet.FromHTML(*r.Translation)
			if err != nil {
				return nil, err
			}
			v = v.WithTranslation(t)
		}
		return v.WithOrder(r.Order), nil
	case TypeTemplate:
		return NewTemplate(r.Path, r.Format, r.Template, r.SegmentCount).WithOrder(r.Order), nil
	case TypeRelated:
		return NewRelatedObject(r.Path, r.ContentType, r.TranslationKey).WithOrder(r.Order), nil
	}
	return nil, fmt.Errorf("unknown segment type %q", r.Type)
}

// Encode serialises values as a JSON array of records.
func Encode(values []Value) ([]byte, error) {
	records := make([]Record, len(values))
	for i, v := range values {
		records[i] = ToRecord(v)
	}
	return json.Marshal(records)
}

// Decode parses a JSON array of records.
func Decode(data []byte) ([]Value, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	values := make([]Value, 0, len(records))
	for i, r := range records {
		v, err := r.Value()
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}
