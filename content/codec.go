package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type objectJSON struct {
	ContentType    string                     `json:"content_type"`
	TranslationKey string                     `json:"translation_key"`
	Locale         string                     `json:"locale"`
	Fields         map[string]json.RawMessage `json:"fields"`
}

type streamChildJSON struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type listItemJSON struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// DecodeObject decodes an object from its JSON form:
//
//	{"content_type": "blog.BlogPage", "translation_key": "...", "locale": "en", "fields": {...}}
//
// Stream blocks and list items without an id are given a new one.
func (s *Schema) DecodeObject(data []byte) (*Object, error) {
	var raw objectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	model, ok := s.models[raw.ContentType]
	if !ok {
		return nil, fmt.Errorf("decode object: unknown content type %q", raw.ContentType)
	}
	return s.decodeObject(model, raw)
}

func (s *Schema) decodeObject(model *Model, raw objectJSON) (*Object, error) {
	if raw.TranslationKey == "" {
		raw.TranslationKey = uuid.NewString()
	}
	obj := NewObject(model, raw.TranslationKey, raw.Locale)
	for name, value := range raw.Fields {
		f, ok := model.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown field %q", model.Name, name)
		}
		v, err := s.decodeField(f, raw.Locale, value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", model.Name, name, err)
		}
		obj.SetValue(name, v)
	}
	return obj, nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func (s *Schema) decodeField(f *Field, locale string, data json.RawMessage) (any, error) {
	if isNull(data) {
		return nil, nil
	}
	switch f.Kind {
	case FieldPlainText, FieldRichText:
		var str string
		err := json.Unmarshal(data, &str)
		return str, err
	case FieldStream:
		return decodeStream(f.Blocks, data)
	case FieldForeignKey:
		return decodeRef(data, f.Target)
	case FieldManyToMany:
		var refs []Ref
		if err := json.Unmarshal(data, &refs); err != nil {
			return nil, err
		}
		for i := range refs {
			if refs[i].ContentType == "" {
				refs[i].ContentType = f.Target
			}
		}
		return refs, nil
	case FieldChildRelation:
		var rows []objectJSON
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, err
		}
		children := make([]Instance, 0, len(rows))
		for _, row := range rows {
			if row.Locale == "" {
				row.Locale = locale
			}
			child, err := s.decodeObject(f.Child, row)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return children, nil
	}
	var v any
	err := json.Unmarshal(data, &v)
	return v, err
}

func decodeRef(data json.RawMessage, contentType string) (any, error) {
	var ref Ref
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	if ref.ContentType == "" {
		ref.ContentType = contentType
	}
	return ref, nil
}

func decodeStream(b *Block, data json.RawMessage) (StreamValue, error) {
	var children []streamChildJSON
	if err := json.Unmarshal(data, &children); err != nil {
		return nil, err
	}
	out := make(StreamValue, 0, len(children))
	for _, c := range children {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		var v any
		var err error
		if def, ok := b.Child(c.Type); ok {
			v, err = decodeBlock(def, c.Value)
		} else {
			err = json.Unmarshal(c.Value, &v)
		}
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", c.ID, err)
		}
		out = append(out, StreamChild{ID: c.ID, Type: c.Type, Value: v})
	}
	return out, nil
}

func decodeBlock(b *Block, data json.RawMessage) (any, error) {
	if isNull(data) {
		return nil, nil
	}
	switch b.Kind {
	case BlockChar, BlockText, BlockRichText:
		var str string
		err := json.Unmarshal(data, &str)
		return str, err
	case BlockStruct:
		var members map[string]json.RawMessage
		if err := json.Unmarshal(data, &members); err != nil {
			return nil, err
		}
		out := make(StructValue, len(members))
		for name, raw := range members {
			var v any
			var err error
			if def, ok := b.Child(name); ok {
				v, err = decodeBlock(def, raw)
			} else {
				err = json.Unmarshal(raw, &v)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = v
		}
		return out, nil
	case BlockList:
		var items []listItemJSON
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		out := make(ListValue, 0, len(items))
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			v, err := decodeBlock(b.Item, item.Value)
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", item.ID, err)
			}
			out = append(out, ListItem{ID: item.ID, Value: v})
		}
		return out, nil
	case BlockStream:
		return decodeStream(b, data)
	case BlockChooser:
		return decodeRef(data, b.Target)
	}
	var v any
	err := json.Unmarshal(data, &v)
	return v, err
}

// EncodeObject encodes inst in the form DecodeObject reads.
func EncodeObject(inst Instance) ([]byte, error) {
	return json.Marshal(objectValue(inst))
}

func objectValue(inst Instance) map[string]any {
	fields := make(map[string]any)
	for _, f := range inst.Model().Fields {
		if v := inst.Value(f.Name); v != nil {
			fields[f.Name] = encodeValue(v)
		}
	}
	return map[string]any{
		"content_type":    inst.Model().Name,
		"translation_key": inst.TranslationKey(),
		"locale":          inst.Locale(),
		"fields":          fields,
	}
}

func encodeValue(v any) any {
	switch v := v.(type) {
	case StreamValue:
		out := make([]map[string]any, len(v))
		for i, c := range v {
			out[i] = map[string]any{"id": c.ID, "type": c.Type, "value": encodeValue(c.Value)}
		}
		return out
	case StructValue:
		out := make(map[string]any, len(v))
		for k, c := range v {
			out[k] = encodeValue(c)
		}
		return out
	case ListValue:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = map[string]any{"id": item.ID, "value": encodeValue(item.Value)}
		}
		return out
	case []Instance:
		out := make([]map[string]any, len(v))
		for i, child := range v {
			out[i] = objectValue(child)
		}
		return out
	}
	return v
}
