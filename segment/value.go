// Package segment defines the path-addressed values that content trees are
// flattened into for translation.
package segment

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
)

// Separator joins path components.
const Separator = "."

// Value is one segment of a content tree. Implementations are immutable:
// every transform returns a new value.
type Value interface {
	Path() string
	Order() int
	// Wrap prefixes the path with component.
	Wrap(component string) Value
	// Unwrap removes the first path component and returns it with the
	// remaining value.
	Unwrap() (string, Value, error)
	WithOrder(order int) Value
	IsEmpty() bool
}

type base struct {
	path  string
	order int
}

func (b base) Path() string { return b.path }
func (b base) Order() int   { return b.order }

func (b base) wrap(component string) base {
	if b.path == "" {
		b.path = component
	} else {
		b.path = component + Separator + b.path
	}
	return b
}

func (b base) unwrap() (string, base, error) {
	if b.path == "" {
		return "", b, gotlm.ErrEmptyPath
	}
	head, rest, _ := strings.Cut(b.path, Separator)
	b.path = rest
	return head, b, nil
}

// StringValue is a translatable run of text with inline markup.
type StringValue struct {
	base
	Source      htmlsnippet.Snippet
	Translation *htmlsnippet.Snippet
}

// NewString returns a string segment at path.
func NewString(path string, source htmlsnippet.Snippet) StringValue {
	return StringValue{base: base{path: path}, Source: source}
}

// StringFromHTML parses html into a string segment.
func StringFromHTML(path, html string) (StringValue, error) {
	s, err := htmlsnippet.FromHTML(html)
	if err != nil {
		return StringValue{}, err
	}
	return NewString(path, s), nil
}

// StringFromPlaintext wraps plain text into a string segment.
func StringFromPlaintext(path, text string) StringValue {
	return NewString(path, htmlsnippet.FromPlaintext(text))
}

func (v StringValue) Wrap(component string) Value {
	v.base = v.base.wrap(component)
	return v
}

func (v StringValue) Unwrap() (string, Value, error) {
	head, b, err := v.base.unwrap()
	if err != nil {
		return "", nil, err
	}
	v.base = b
	return head, v, nil
}

func (v StringValue) WithOrder(order int) Value {
	v.order = order
	return v
}

func (v StringValue) IsEmpty() bool {
	return v.Source.IsEmpty()
}

// WithTranslation returns a copy carrying translation.
func (v StringValue) WithTranslation(translation htmlsnippet.Snippet) StringValue {
	v.Translation = &translation
	return v
}

// IsTranslated reports whether a translation is attached.
func (v StringValue) IsTranslated() bool {
	return v.Translation != nil
}

// Effective returns the translation, or the source when there is none.
func (v StringValue) Effective() htmlsnippet.Snippet {
	if v.Translation != nil {
		return *v.Translation
	}
	return v.Source
}

// RenderText renders the effective snippet as plain text.
func (v StringValue) RenderText() string {
	return v.Effective().PlainText()
}

// RenderHTML renders the effective snippet as HTML.
func (v StringValue) RenderHTML() string {
	return v.Effective().HTML()
}

// TemplateValue is the untranslatable skeleton of a rich text value.
type TemplateValue struct {
	base
	Format       string
	Template     string
	SegmentCount int
}

// NewTemplate returns a template segment at path.
func NewTemplate(path, format, template string, segmentCount int) TemplateValue {
	return TemplateValue{
		base:         base{path: path},
		Format:       format,
		Template:     template,
		SegmentCount: segmentCount,
	}
}

func (v TemplateValue) Wrap(component string) Value {
	v.base = v.base.wrap(component)
	return v
}

func (v TemplateValue) Unwrap() (string, Value, error) {
	head, b, err := v.base.unwrap()
	if err != nil {
		return "", nil, err
	}
	v.base = b
	return head, v, nil
}

func (v TemplateValue) WithOrder(order int) Value {
	v.order = order
	return v
}

func (v TemplateValue) IsEmpty() bool {
	return v.Template == ""
}

// RelatedObjectValue references another translatable object by content
// type and translation key.
type RelatedObjectValue struct {
	base
	ContentType    string
	TranslationKey string
}

// NewRelatedObject returns a related object segment at path.
func NewRelatedObject(path, contentType, translationKey string) RelatedObjectValue {
	return RelatedObjectValue{
		base:           base{path: path},
		ContentType:    contentType,
		TranslationKey: translationKey,
	}
}

func (v RelatedObjectValue) Wrap(component string) Value {
	v.base = v.base.wrap(component)
	return v
}

func (v RelatedObjectValue) Unwrap() (string, Value, error) {
	head, b, err := v.base.unwrap()
	if err != nil {
		return "", nil, err
	}
	v.base = b
	return head, v, nil
}

func (v RelatedObjectValue) WithOrder(order int) Value {
	v.order = order
	return v
}

func (v RelatedObjectValue) IsEmpty() bool {
	return v.TranslationKey == ""
}

// WrapAll wraps every value under component.
func WrapAll(component string, values []Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = v.Wrap(component)
	}
	return out
}

// Group is the set of values sharing a first path component.
type Group struct {
	Key    string
	Values []Value
}

// GroupByComponent unwraps every value and groups the remainders by the
// removed component. Groups appear in first-seen order.
func GroupByComponent(values []Value) ([]Group, error) {
	var groups []Group
	index := make(map[string]int)
	for _, v := range values {
		key, rest, err := v.Unwrap()
		if err != nil {
			return nil, err
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Values = append(groups[i].Values, rest)
	}
	return groups, nil
}

// SortByOrder returns a copy of values stably sorted by order.
func SortByOrder(values []Value) []Value {
	out := slices.Clone(values)
	slices.SortStableFunc(out, func(a, b Value) int { return cmp.Compare(a.Order(), b.Order()) })
	return out
}

// DropEmpty removes values with nothing to translate.
func DropEmpty(values []Value) []Value {
	out := values[:0:0]
	for _, v := range values {
		if !v.IsEmpty() {
			out = append(out, v)
		}
	}
	return out
}
