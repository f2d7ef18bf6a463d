package content

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/segment"
)

// SegmentHook lets a custom field or block produce and consume its own
// segments instead of going through the built-in dispatch.
type SegmentHook interface {
	Extract(value any) ([]segment.Value, error)
	Restore(value any, segments []segment.Value) (any, error)
}

// Model describes a content type.
type Model struct {
	Name         string // Content type, e.g. "blog.BlogPage"
	Translatable bool
	Fields       []*Field

	index map[string]*Field
}

// NewModel builds a model and indexes its fields.
func NewModel(name string, translatable bool, fields ...*Field) *Model {
	m := &Model{Name: name, Translatable: translatable, Fields: fields}
	m.reindex()
	return m
}

func (m *Model) reindex() {
	m.index = make(map[string]*Field, len(m.Fields))
	for _, f := range m.Fields {
		m.index[f.Name] = f
	}
}

// Field returns the named field declaration.
func (m *Model) Field(name string) (*Field, bool) {
	if m.index == nil {
		m.reindex()
	}
	f, ok := m.index[name]
	return f, ok
}

// Field declares one field of a model and its translation policy.
type Field struct {
	Name         string
	Kind         FieldKind
	Translatable bool
	Synchronized bool
	Overridable  bool // Synchronised value is skipped when the target overrides it
	Required     bool
	MaxLength    int

	Target string // Content type referenced by foreign key and many to many fields
	Blocks *Block // Root stream block of a stream field
	Child  *Model // Model of the rows of a child relation
	Hook   SegmentHook

	// Optional per-instance overrides of the declared policy.
	TranslatedIf   func(Instance) bool
	SynchronizedIf func(Instance) bool

	targetTranslatable bool
}

// SetTargetTranslatable records whether the foreign key target is a
// translatable model. Schema loading does this automatically.
func (f *Field) SetTargetTranslatable(v bool) {
	f.targetTranslatable = v
}

// IsTranslated reports whether the field's content is extracted as segments
// for inst.
func (f *Field) IsTranslated(inst Instance) bool {
	if f.TranslatedIf != nil {
		return f.TranslatedIf(inst)
	}
	switch f.Kind {
	case FieldManyToMany, FieldValue:
		return false
	case FieldForeignKey:
		return f.Translatable && f.targetTranslatable
	}
	return f.Translatable
}

// IsSynchronized reports whether the field's raw value is copied from the
// source to every translation of inst.
func (f *Field) IsSynchronized(inst Instance) bool {
	if f.SynchronizedIf != nil {
		return f.SynchronizedIf(inst)
	}
	switch f.Kind {
	case FieldStream, FieldChildRelation:
		// Structure is copied and translated leaves are ingested on top.
		return f.Translatable || f.Synchronized
	case FieldForeignKey:
		return f.Synchronized || (f.Translatable && !f.targetTranslatable)
	}
	return f.Synchronized
}

// Validate checks a reconstructed value against the declaration.
func (f *Field) Validate(value any) error {
	s, isString := value.(string)
	if f.Required && (value == nil || (isString && strings.TrimSpace(s) == "")) {
		return &gotlm.FieldValidationError{Field: f.Name, Message: "this field is required"}
	}
	if f.MaxLength > 0 && isString {
		if n := utf8.RuneCountInString(s); n > f.MaxLength {
			return &gotlm.FieldValidationError{
				Field:   f.Name,
				Message: fmt.Sprintf("ensure this value has at most %d characters (it has %d)", f.MaxLength, n),
			}
		}
	}
	return nil
}

// Block declares a stream block type.
type Block struct {
	Name         string
	Kind         BlockKind
	Children     []*Block // Struct members, or the block types a stream accepts
	Item         *Block   // List item type
	Target       string   // Chooser content type
	Synchronized bool     // Struct member copied rather than translated
	Hook         SegmentHook
}

// Child returns the named struct member or stream block type.
func (b *Block) Child(name string) (*Block, bool) {
	for _, c := range b.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
