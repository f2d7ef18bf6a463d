// Package contenttest provides a sample schema and objects for tests.
package contenttest

import (
	"github.com/ZaguanLabs/gotlm/content"
)

// SchemaYAML declares a small blog.
const SchemaYAML = `
models:
  - name: blog.Author
    translatable: true
    fields:
      - {name: name, kind: plain_text, translatable: true}

  - name: blog.Promo
    translatable: true
    fields:
      - {name: text, kind: plain_text, translatable: true}

  - name: blog.Image
    fields:
      - {name: file, kind: value, synchronized: true}

  - name: blog.FAQ
    translatable: true
    fields:
      - {name: question, kind: plain_text, translatable: true}
      - {name: answer, kind: rich_text, translatable: true}

  - name: blog.BlogPage
    translatable: true
    fields:
      - {name: title, kind: plain_text, translatable: true, required: true, max_length: 60}
      - {name: slug, kind: plain_text, synchronized: true}
      - {name: intro, kind: rich_text, translatable: true}
      - name: body
        kind: stream
        translatable: true
        blocks:
          - {name: heading, kind: char}
          - {name: paragraph, kind: rich_text}
          - name: card
            kind: struct
            children:
              - {name: title, kind: char}
              - {name: link, kind: char, synchronized: true}
          - name: bullets
            kind: list
            item: {kind: char}
          - {name: promo, kind: chooser, target: blog.Promo}
          - {name: count, kind: value}
      - {name: author, kind: foreign_key, target: blog.Author, translatable: true}
      - {name: hero, kind: foreign_key, target: blog.Image, translatable: true}
      - {name: tags, kind: many_to_many, target: blog.Tag, synchronized: true}
      - {name: faqs, kind: child_relation, child: blog.FAQ, translatable: true}
      - {name: published_at, kind: value, synchronized: true}
`

// Schema parses SchemaYAML.
func Schema(opts ...content.SchemaOption) *content.Schema {
	s, err := content.ParseSchema([]byte(SchemaYAML), content.FormatYAML, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// PageJSON is an English blog page using every field kind.
const PageJSON = `{
  "content_type": "blog.BlogPage",
  "translation_key": "page-1",
  "locale": "en",
  "fields": {
    "title": "Hello world",
    "slug": "hello-world",
    "intro": "<h2>Welcome</h2><p>Read <a href=\"/docs\">the docs</a> first.</p>",
    "body": [
      {"id": "b-heading", "type": "heading", "value": "Getting started"},
      {"id": "b-para", "type": "paragraph", "value": "<p>One</p><p>Two</p><p>Three</p>"},
      {"id": "b-card", "type": "card", "value": {"title": "Card title", "link": "https://example.com"}},
      {"id": "b-list", "type": "bullets", "value": [
        {"id": "i-1", "value": "First"},
        {"id": "i-2", "value": "Second"}
      ]},
      {"id": "b-promo", "type": "promo", "value": {"translation_key": "promo-1"}},
      {"id": "b-count", "type": "count", "value": 3}
    ],
    "author": {"translation_key": "author-1", "locale": "en"},
    "hero": {"translation_key": "image-1"},
    "tags": [{"translation_key": "go"}, {"translation_key": "i18n"}],
    "faqs": [
      {"content_type": "blog.FAQ", "translation_key": "faq-1", "fields": {"question": "Why?", "answer": "<p>Because.</p>"}},
      {"content_type": "blog.FAQ", "translation_key": "faq-2", "fields": {"question": "How?", "answer": "<p>Like <b>this</b>.</p>"}}
    ],
    "published_at": "2024-05-01T10:00:00Z"
  }
}`

// Page decodes PageJSON against s.
func Page(s *content.Schema) *content.Object {
	page, err := s.DecodeObject([]byte(PageJSON))
	if err != nil {
		panic(err)
	}
	return page
}

// Related returns the author and promo the sample page refers to, in the
// given locale.
func Related(s *content.Schema, locale string) []content.Instance {
	author, _ := s.Model("blog.Author")
	promo, _ := s.Model("blog.Promo")

	a := content.NewObject(author, "author-1", locale)
	a.SetValue("name", "Ada ("+locale+")")
	p := content.NewObject(promo, "promo-1", locale)
	p.SetValue("text", "Promo ("+locale+")")
	return []content.Instance{a, p}
}
