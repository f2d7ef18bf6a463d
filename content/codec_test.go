package content_test

import (
	"testing"

	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/content/contenttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	s := contenttest.Schema()
	page := contenttest.Page(s)

	assert.Equal(t, "page-1", page.TranslationKey())
	assert.Equal(t, "en", page.Locale())
	assert.Equal(t, "Hello world", page.Value("title"))

	body, ok := page.Value("body").(content.StreamValue)
	require.True(t, ok)
	require.Len(t, body, 6)
	assert.Equal(t, content.StructValue{"title": "Card title", "link": "https://example.com"}, body[2].Value)
	assert.Equal(t, content.ListValue{{ID: "i-1", Value: "First"}, {ID: "i-2", Value: "Second"}}, body[3].Value)
	assert.Equal(t, content.Ref{ContentType: "blog.Promo", TranslationKey: "promo-1"}, body[4].Value)
	assert.Equal(t, float64(3), body[5].Value)

	assert.Equal(t, content.Ref{ContentType: "blog.Author", TranslationKey: "author-1", Locale: "en"}, page.Value("author"))
	assert.Len(t, page.Value("tags"), 2)

	faqs, ok := page.Value("faqs").([]content.Instance)
	require.True(t, ok)
	require.Len(t, faqs, 2)
	assert.Equal(t, "faq-2", faqs[1].TranslationKey())
	assert.Equal(t, "en", faqs[1].Locale(), "children inherit the parent locale")
}

func TestDecodeObject_GeneratesIDs(t *testing.T) {
	s := contenttest.Schema()
	page, err := s.DecodeObject([]byte(`{"content_type":"blog.BlogPage","locale":"en","fields":{"body":[{"type":"heading","value":"x"}]}}`))
	require.NoError(t, err)

	assert.NotEmpty(t, page.TranslationKey())
	body := page.Value("body").(content.StreamValue)
	assert.Len(t, body[0].ID, 36)
}

func TestDecodeObject_Errors(t *testing.T) {
	s := contenttest.Schema()

	_, err := s.DecodeObject([]byte(`{"content_type":"blog.Missing"}`))
	assert.ErrorContains(t, err, "unknown content type")

	_, err = s.DecodeObject([]byte(`{"content_type":"blog.BlogPage","fields":{"nope":1}}`))
	assert.ErrorContains(t, err, `unknown field "nope"`)

	_, err = s.DecodeObject([]byte(`{"content_type":"blog.BlogPage","fields":{"title":1}}`))
	assert.Error(t, err)
}

func TestEncodeObject_RoundTrip(t *testing.T) {
	s := contenttest.Schema()
	page := contenttest.Page(s)

	data, err := content.EncodeObject(page)
	require.NoError(t, err)

	again, err := s.DecodeObject(data)
	require.NoError(t, err)

	for _, f := range page.Model().Fields {
		if f.Kind == content.FieldChildRelation {
			continue
		}
		assert.Equal(t, page.Value(f.Name), again.Value(f.Name), f.Name)
	}

	faqs := again.Value("faqs").([]content.Instance)
	assert.Equal(t, "<p>Like <b>this</b>.</p>", faqs[1].Value("answer"))
}
