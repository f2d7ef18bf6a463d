package segment

import (
	"math/rand/v2"
	"testing"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValues(t *testing.T) []Value {
	t.Helper()
	s, err := StringFromHTML("field", `Read <a href="/docs">the docs</a>`)
	require.NoError(t, err)
	return []Value{
		s,
		StringFromPlaintext("", "line one\nline two"),
		NewTemplate("body.abc", "html", `<p><text position="0"></text></p>`, 1),
		NewRelatedObject("author", "blog.Author", "4f5a"),
	}
}

func TestWrapUnwrap_Law(t *testing.T) {
	for _, v := range sampleValues(t) {
		for _, component := range []string{"a", "streamfield", "0d8e1f"} {
			key, rest, err := v.Wrap(component).Unwrap()
			require.NoError(t, err)
			assert.Equal(t, component, key)
			assert.Equal(t, v, rest)
		}
	}
}

func TestWrap_Path(t *testing.T) {
	v := StringFromPlaintext("field_a", "X")

	wrapped := v.Wrap("U").Wrap("streamfield")
	assert.Equal(t, "streamfield.U.field_a", wrapped.Path())
	assert.Equal(t, "field_a", v.Path(), "wrap must not mutate the receiver")

	root := StringFromPlaintext("", "X").Wrap("title")
	assert.Equal(t, "title", root.Path())
}

func TestUnwrap_EmptyPath(t *testing.T) {
	_, _, err := StringFromPlaintext("", "X").Unwrap()
	assert.ErrorIs(t, err, gotlm.ErrEmptyPath)

	_, _, err = NewTemplate("", "html", "x", 0).Unwrap()
	assert.ErrorIs(t, err, gotlm.ErrEmptyPath)
}

func TestWithOrder(t *testing.T) {
	v := NewTemplate("body", "html", "<p></p>", 0)
	ordered := v.WithOrder(7)

	assert.Equal(t, 7, ordered.Order())
	assert.Equal(t, 0, v.Order())
	assert.Equal(t, "body", ordered.Path())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, StringFromPlaintext("x", "").IsEmpty())
	assert.False(t, StringFromPlaintext("x", " ").IsEmpty())
	assert.True(t, NewTemplate("x", "html", "", 0).IsEmpty())
	assert.True(t, NewRelatedObject("x", "blog.Author", "").IsEmpty())
	assert.False(t, NewRelatedObject("x", "blog.Author", "k").IsEmpty())
}

func TestStringValue_Translation(t *testing.T) {
	v := StringFromPlaintext("title", "Hello")
	assert.False(t, v.IsTranslated())
	assert.Equal(t, "Hello", v.RenderText())

	fr := v.WithTranslation(htmlsnippet.FromPlaintext("Bonjour\nà tous"))
	assert.True(t, fr.IsTranslated())
	assert.False(t, v.IsTranslated())
	assert.Equal(t, "Bonjour\nà tous", fr.RenderText())
	assert.Equal(t, "Bonjour<br/>à tous", fr.RenderHTML())
}

func TestGroupByComponent(t *testing.T) {
	values := []Value{
		StringFromPlaintext("title", "T"),
		StringFromPlaintext("body.b1.heading", "H").WithOrder(2),
		NewRelatedObject("author", "blog.Author", "k"),
		StringFromPlaintext("body.b2", "P").WithOrder(1),
	}

	groups, err := GroupByComponent(values)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "title", groups[0].Key)
	assert.Equal(t, "body", groups[1].Key)
	assert.Equal(t, "author", groups[2].Key)

	require.Len(t, groups[1].Values, 2)
	assert.Equal(t, "b1.heading", groups[1].Values[0].Path())
	assert.Equal(t, "b2", groups[1].Values[1].Path())
	assert.Equal(t, "", groups[0].Values[0].Path())
}

func TestGroupByComponent_EmptyPath(t *testing.T) {
	_, err := GroupByComponent([]Value{StringFromPlaintext("", "x")})
	assert.ErrorIs(t, err, gotlm.ErrEmptyPath)
}

func TestSortByOrder_Shuffled(t *testing.T) {
	var values []Value
	for i := range 10 {
		values = append(values, StringFromPlaintext("body", string(rune('a'+i))).WithOrder(i))
	}
	shuffled := append([]Value(nil), values...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, values, SortByOrder(shuffled))
}

func TestDropEmpty(t *testing.T) {
	values := []Value{
		StringFromPlaintext("a", ""),
		StringFromPlaintext("b", "kept"),
		NewRelatedObject("c", "blog.Author", ""),
	}

	kept := DropEmpty(values)
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].Path())
	assert.Len(t, values, 3)
}

func TestEncodeDecode(t *testing.T) {
	values := sampleValues(t)
	values[0] = values[0].(StringValue).WithTranslation(htmlsnippet.FromPlaintext("Lisez")).WithOrder(3)

	data, err := Encode(values)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(values))

	for i := range values {
		assert.Equal(t, ToRecord(values[i]), ToRecord(decoded[i]))
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`[{"type":"blob","path":"x"}]`))
	assert.ErrorContains(t, err, "unknown segment type")
}
