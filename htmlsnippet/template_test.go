package htmlsnippet

import (
	"testing"

	"github.com/ZaguanLabs/gotlm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlOf(snippets []Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.HTML()
	}
	return out
}

func mustSnippets(t *testing.T, in ...string) []Snippet {
	t.Helper()
	out := make([]Snippet, len(in))
	for i, s := range in {
		snippet, err := FromHTML(s)
		require.NoError(t, err)
		out[i] = snippet
	}
	return out
}

func TestExtract_HeadingAndParagraph(t *testing.T) {
	template, snippets, err := Extract("<h1>Foo</h1><p>Bar <b>Baz</b></p>")
	require.NoError(t, err)

	assert.Equal(t, `<h1><text position="0"></text></h1><p><text position="1"></text></p>`, template)
	assert.Equal(t, []string{"Foo", "Bar <b>Baz</b>"}, htmlOf(snippets))

	out, err := Restore(template, mustSnippets(t, "Le Foo", "Le Bar <b>Le Baz</b>"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Le Foo</h1><p>Le Bar <b>Le Baz</b></p>", out)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		template string
		snippets []string
	}{
		{
			name:     "whitespace kept outside placeholder",
			input:    "<p>  Hello <b>World</b>  </p>",
			template: `<p>  <text position="0"></text>  </p>`,
			snippets: []string{"Hello <b>World</b>"},
		},
		{
			name:     "edge br stays in template",
			input:    "<p><br/>Hello<br/></p>",
			template: `<p><br/><text position="0"></text><br/></p>`,
			snippets: []string{"Hello"},
		},
		{
			name:     "inner br stays in snippet",
			input:    "<p>One<br/>Two</p>",
			template: `<p><text position="0"></text></p>`,
			snippets: []string{"One<br/>Two"},
		},
		{
			name:     "lone inline element is descended into",
			input:    `<p><a href="/x">Link</a></p>`,
			template: `<p><a href="/x"><text position="0"></text></a></p>`,
			snippets: []string{"Link"},
		},
		{
			name:     "blank runs produce no placeholder",
			input:    "<p> </p><p>Text</p>",
			template: `<p> </p><p><text position="0"></text></p>`,
			snippets: []string{"Text"},
		},
		{
			name:     "lists in document order",
			input:    "<ul><li>One</li><li>Two <i>2</i></li></ul>",
			template: `<ul><li><text position="0"></text></li><li><text position="1"></text></li></ul>`,
			snippets: []string{"One", "Two <i>2</i>"},
		},
		{
			name:     "text around a nested block",
			input:    "<div>Before<p>Inside</p>After</div>",
			template: `<div><text position="0"></text><p><text position="1"></text></p><text position="2"></text></div>`,
			snippets: []string{"Before", "Inside", "After"},
		},
		{
			name:     "top level text",
			input:    "Just text",
			template: `<text position="0"></text>`,
			snippets: []string{"Just text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, snippets, err := Extract(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.template, template)
			assert.Equal(t, tt.snippets, htmlOf(snippets))
		})
	}
}

func TestExtract_RawTextElementsStayInTemplate(t *testing.T) {
	in := `<p>Hello</p><script>var msg = "hi";</script><style>p { color: red; }</style>`
	template, snippets, err := Extract(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello"}, htmlOf(snippets))
	assert.Equal(t, `<p><text position="0"></text></p><script>var msg = "hi";</script><style>p { color: red; }</style>`, template)

	out, err := Restore(template, mustSnippets(t, "Bonjour"))
	require.NoError(t, err)
	assert.Equal(t, `<p>Bonjour</p><script>var msg = "hi";</script><style>p { color: red; }</style>`, out)
}

func TestFromHTML_SkipsScriptText(t *testing.T) {
	s, err := FromHTML(`Hi<script>alert(1)</script> there`)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", s.Text())
}

func TestExtractRestore_RoundTrip(t *testing.T) {
	inputs := []string{
		`<h1>Title</h1><p>Some <b>bold</b> and <a href="/page">link</a>.</p><ul><li>One</li><li>Two</li></ul>`,
		`<p>  padded  </p>`,
		`<p><br/>Hello<br/>World</p>`,
		`<div><h2>Nested</h2><p><i>only italic</i></p></div>`,
		`<p></p>`,
		`<p><b>x<br/></b>y</p>`,
		`<p>a<b>x<i></i></b>y</p>`,
		`<p><b>x</b><br/>y</p>`,
		`<p><b><i>x</i><br/></b>z</p>`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			template, snippets, err := Extract(in)
			require.NoError(t, err)

			out, err := Restore(template, snippets)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRestore_CountMismatch(t *testing.T) {
	_, err := Restore(`<p><text position="0"></text></p><p><text position="1"></text></p>`, mustSnippets(t, "one"))

	var mismatch *gotlm.CountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Got)
}

func TestRestore_BadPosition(t *testing.T) {
	_, err := Restore(`<p><text position="5"></text></p>`, mustSnippets(t, "one"))

	var perr *gotlm.ProcessorError
	require.ErrorAs(t, err, &perr)
}

func TestRestore_PositionOrder(t *testing.T) {
	out, err := Restore(`<p><text position="1"></text></p><p><text position="0"></text></p>`, mustSnippets(t, "zero", "one"))
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p><p>zero</p>", out)
}
