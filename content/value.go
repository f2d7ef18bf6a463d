package content

import "maps"

// StreamChild is one block in a stream.
type StreamChild struct {
	ID    string // Stable block id, used as a path component
	Type  string // Block type name
	Value any
}

// StreamValue is the value of a stream field or stream block.
type StreamValue []StreamChild

// StructValue maps struct member names to their values.
type StructValue map[string]any

// ListItem is one item of a list block.
type ListItem struct {
	ID    string
	Value any
}

// ListValue is the value of a list block.
type ListValue []ListItem

// Ref points at a translatable object in a locale. Foreign keys, choosers
// and many to many values hold refs.
type Ref struct {
	ContentType    string `json:"content_type"`
	TranslationKey string `json:"translation_key"`
	Locale         string `json:"locale,omitempty"`
}

// IsZero reports whether the ref points nowhere.
func (r Ref) IsZero() bool {
	return r.TranslationKey == ""
}

// RefOf returns a ref to inst.
func RefOf(inst Instance) Ref {
	return Ref{
		ContentType:    inst.Model().Name,
		TranslationKey: inst.TranslationKey(),
		Locale:         inst.Locale(),
	}
}

// Clone deep copies a field or block value. Child instances are copied into
// locale; an empty locale keeps each child's own.
func Clone(v any, locale string) any {
	switch v := v.(type) {
	case StreamValue:
		out := make(StreamValue, len(v))
		for i, c := range v {
			c.Value = Clone(c.Value, locale)
			out[i] = c
		}
		return out
	case StructValue:
		out := make(StructValue, len(v))
		for k, c := range v {
			out[k] = Clone(c, locale)
		}
		return out
	case ListValue:
		out := make(ListValue, len(v))
		for i, item := range v {
			item.Value = Clone(item.Value, locale)
			out[i] = item
		}
		return out
	case []Ref:
		return append([]Ref(nil), v...)
	case []Instance:
		out := make([]Instance, len(v))
		for i, child := range v {
			l := locale
			if l == "" {
				l = child.Locale()
			}
			out[i] = child.CopyForLocale(l)
		}
		return out
	case map[string]any:
		out := maps.Clone(v)
		for k, c := range out {
			out[k] = Clone(c, locale)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, c := range v {
			out[i] = Clone(c, locale)
		}
		return out
	}
	return v
}
