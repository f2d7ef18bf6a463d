package extract_test

import (
	"context"
	"testing"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/content/contenttest"
	"github.com/ZaguanLabs/gotlm/extract"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Path  string
	Order int
	Text  string
}

func summarise(values []segment.Value) []summary {
	out := make([]summary, len(values))
	for i, v := range values {
		s := summary{Path: v.Path(), Order: v.Order()}
		switch v := v.(type) {
		case segment.StringValue:
			s.Text = v.Source.HTML()
		case segment.TemplateValue:
			s.Text = "template:" + v.Template
		case segment.RelatedObjectValue:
			s.Text = "related:" + v.ContentType + ":" + v.TranslationKey
		}
		out[i] = s
	}
	return out
}

func TestSegments_Page(t *testing.T) {
	s := contenttest.Schema()
	page := contenttest.Page(s)

	segs, err := extract.Segments(page)
	require.NoError(t, err)

	want := []summary{
		{"title", 0, "Hello world"},
		{"intro", 0, `template:<h2><text position="0"></text></h2><p><text position="1"></text></p>`},
		{"intro", 1, "Welcome"},
		{"intro", 2, `Read <a href="/docs">the docs</a> first.`},
		{"body.b-heading", 0, "Getting started"},
		{"body.b-para", 0, `template:<p><text position="0"></text></p><p><text position="1"></text></p><p><text position="2"></text></p>`},
		{"body.b-para", 1, "One"},
		{"body.b-para", 2, "Two"},
		{"body.b-para", 3, "Three"},
		{"body.b-card.title", 0, "Card title"},
		{"body.b-list.i-1", 0, "First"},
		{"body.b-list.i-2", 0, "Second"},
		{"body.b-promo", 0, "related:blog.Promo:promo-1"},
		{"author", 0, "related:blog.Author:author-1"},
		{"faqs.faq-1.question", 0, "Why?"},
		{"faqs.faq-1.answer", 0, `template:<p><text position="0"></text></p>`},
		{"faqs.faq-1.answer", 1, "Because."},
		{"faqs.faq-2.question", 0, "How?"},
		{"faqs.faq-2.answer", 0, `template:<p><text position="0"></text></p>`},
		{"faqs.faq-2.answer", 1, "Like <b>this</b>."},
	}
	assert.Equal(t, want, summarise(segs))

	tmpl := segs[1].(segment.TemplateValue)
	assert.Equal(t, 2, tmpl.SegmentCount)
	assert.Equal(t, "html", tmpl.Format)
}

func TestSegments_StructBlock(t *testing.T) {
	card := &content.Block{Name: "card", Kind: content.BlockStruct, Children: []*content.Block{
		{Name: "field_a", Kind: content.BlockChar},
		{Name: "field_b", Kind: content.BlockChar},
	}}
	m := content.NewModel("test.Page", true, &content.Field{
		Name:         "streamfield",
		Kind:         content.FieldStream,
		Translatable: true,
		Blocks:       &content.Block{Kind: content.BlockStream, Children: []*content.Block{card}},
	})
	page := content.NewObject(m, "k", "en")
	page.SetValue("streamfield", content.StreamValue{
		{ID: "U", Type: "card", Value: content.StructValue{"field_a": "X", "field_b": "Y"}},
	})

	segs, err := extract.Segments(page)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "streamfield.U.field_a", segs[0].Path())
	assert.Equal(t, "streamfield.U.field_b", segs[1].Path())
}

func TestSegments_PlaintextNewlines(t *testing.T) {
	m := content.NewModel("test.Note", true, &content.Field{Name: "body", Kind: content.FieldPlainText, Translatable: true})
	note := content.NewObject(m, "k", "en")
	note.SetValue("body", "a < b\nc")

	segs, err := extract.Segments(note)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "a &lt; b<br/>c", segs[0].(segment.StringValue).Source.HTML())
}

func TestSegments_SkipsEmptyAndUntranslated(t *testing.T) {
	s := contenttest.Schema()
	m, _ := s.Model("blog.BlogPage")
	page := content.NewObject(m, "k", "en")
	page.SetValue("title", "")
	page.SetValue("slug", "synced-only")
	page.SetValue("intro", "<p> </p>")

	segs, err := extract.Segments(page)
	require.NoError(t, err)

	// A blank rich text value still carries its template.
	require.Len(t, segs, 1)
	tmpl, ok := segs[0].(segment.TemplateValue)
	require.True(t, ok)
	assert.Equal(t, "<p> </p>", tmpl.Template)
	assert.Zero(t, tmpl.SegmentCount)
}

func TestSegments_UnrecognizedBlock(t *testing.T) {
	s := contenttest.Schema()
	m, _ := s.Model("blog.BlogPage")
	page := content.NewObject(m, "k", "en")
	page.SetValue("body", content.StreamValue{{ID: "v1", Type: "video", Value: "x"}})

	_, err := extract.Segments(page)
	var unrecognized *gotlm.UnrecognizedTypeError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "body.v1", unrecognized.Path)
	assert.Equal(t, "video", unrecognized.Kind)
}

func TestSegments_CustomWithoutHook(t *testing.T) {
	m := content.NewModel("test.Map", true, &content.Field{Name: "geo", Kind: content.FieldCustom, Translatable: true})
	obj := content.NewObject(m, "k", "en")
	obj.SetValue("geo", map[string]any{"label": "Paris"})

	_, err := extract.Segments(obj)
	var unrecognized *gotlm.UnrecognizedTypeError
	require.ErrorAs(t, err, &unrecognized)
	assert.Equal(t, "geo", unrecognized.Path)
	assert.Equal(t, "custom", unrecognized.Kind)
}

// labelHook translates the "label" key of a map value.
type labelHook struct{}

func (labelHook) Extract(value any) ([]segment.Value, error) {
	m := value.(map[string]any)
	return []segment.Value{segment.StringFromPlaintext("label", m["label"].(string))}, nil
}

func (labelHook) Restore(value any, segs []segment.Value) (any, error) {
	m := content.Clone(value, "").(map[string]any)
	for _, s := range segs {
		if s.Path() == "label" {
			m["label"] = s.(segment.StringValue).RenderText()
		}
	}
	return m, nil
}

func TestSegments_Hook(t *testing.T) {
	m := content.NewModel("test.Map", true, &content.Field{Name: "geo", Kind: content.FieldCustom, Translatable: true, Hook: labelHook{}})
	obj := content.NewObject(m, "k", "en")
	obj.SetValue("geo", map[string]any{"label": "Paris", "lat": 48.85})

	segs, err := extract.Segments(obj)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "geo.label", segs[0].Path())
}

func TestSegments_WrongValueType(t *testing.T) {
	s := contenttest.Schema()
	m, _ := s.Model("blog.BlogPage")
	page := content.NewObject(m, "k", "en")
	page.SetValue("title", 42)

	_, err := extract.Segments(page)
	assert.ErrorContains(t, err, "title: expected string value, got int")
}

func TestDependencies(t *testing.T) {
	s := contenttest.Schema()
	page := contenttest.Page(s)
	reg := content.NewRegistry()
	for _, inst := range contenttest.Related(s, "en") {
		reg.Add(inst)
	}

	deps, err := extract.Dependencies(context.Background(), page, reg)
	require.NoError(t, err)
	assert.Equal(t, []content.Ref{
		{ContentType: "blog.Promo", TranslationKey: "promo-1", Locale: "en"},
		{ContentType: "blog.Author", TranslationKey: "author-1", Locale: "en"},
	}, deps)
}

func TestDependencies_Cycle(t *testing.T) {
	a := content.NewModel("test.A", true, &content.Field{Name: "b", Kind: content.FieldForeignKey, Target: "test.B", Translatable: true})
	b := content.NewModel("test.B", true, &content.Field{Name: "a", Kind: content.FieldForeignKey, Target: "test.A", Translatable: true})
	content.NewSchema(a, b)

	objA := content.NewObject(a, "a1", "en")
	objA.SetValue("b", content.Ref{ContentType: "test.B", TranslationKey: "b1"})
	objB := content.NewObject(b, "b1", "en")
	objB.SetValue("a", content.Ref{ContentType: "test.A", TranslationKey: "a1"})

	reg := content.NewRegistry()
	reg.Add(objA)
	reg.Add(objB)

	deps, err := extract.Dependencies(context.Background(), objA, reg)
	require.NoError(t, err)
	assert.Equal(t, []content.Ref{{ContentType: "test.B", TranslationKey: "b1", Locale: "en"}}, deps)
}
