package content_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/content/contenttest"
	"github.com/ZaguanLabs/gotlm/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaTOML = `
[[models]]
name = "shop.Product"
translatable = true

  [[models.fields]]
  name = "name"
  kind = "plain_text"
  translatable = true

  [[models.fields]]
  name = "specs"
  kind = "stream"
  translatable = true

    [[models.fields.blocks]]
    name = "table"
    kind = "table"
    hook = "table"

    [[models.fields.blocks]]
    name = "features"
    kind = "list"
    item = { kind = "char" }
`

type noopHook struct{}

func (noopHook) Extract(any) ([]segment.Value, error)          { return nil, nil }
func (noopHook) Restore(v any, _ []segment.Value) (any, error) { return v, nil }

func TestLoadSchema_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(schemaTOML), 0o600))

	s, err := content.LoadSchema(path, content.WithHook("table", noopHook{}))
	require.NoError(t, err)

	m, ok := s.Model("shop.Product")
	require.True(t, ok)
	require.Len(t, m.Fields, 2)

	specs, _ := m.Field("specs")
	assert.Equal(t, content.FieldStream, specs.Kind)

	table, ok := specs.Blocks.Child("table")
	require.True(t, ok)
	assert.Equal(t, content.BlockUnknown, table.Kind)
	assert.NotNil(t, table.Hook)

	features, _ := specs.Blocks.Child("features")
	assert.Equal(t, content.BlockChar, features.Item.Kind)
}

func TestLoadSchema_UnknownHook(t *testing.T) {
	_, err := content.ParseSchema([]byte(schemaTOML), content.FormatTOML)
	assert.ErrorContains(t, err, `unknown hook "table"`)
}

func TestParseSchema_YAML(t *testing.T) {
	s := contenttest.Schema()

	names := make([]string, 0)
	for _, m := range s.Models() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"blog.Author", "blog.Promo", "blog.Image", "blog.FAQ", "blog.BlogPage"}, names)

	page, _ := s.Model("blog.BlogPage")
	faqs, _ := page.Field("faqs")
	faq, _ := s.Model("blog.FAQ")
	assert.Same(t, faq, faqs.Child)
}

func TestParseSchema_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown kind":   "models:\n  - name: a\n    fields:\n      - {name: x, kind: json}\n",
		"unknown child":  "models:\n  - name: a\n    fields:\n      - {name: x, kind: child_relation, child: b}\n",
		"missing target": "models:\n  - name: a\n    fields:\n      - {name: x, kind: foreign_key}\n",
		"duplicate":      "models:\n  - name: a\n  - name: a\n",
		"list no item":   "models:\n  - name: a\n    fields:\n      - {name: x, kind: stream, blocks: [{name: l, kind: list}]}\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := content.ParseSchema([]byte(doc), content.FormatYAML)
			assert.Error(t, err)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, content.FormatTOML, content.DetectFormat("a/b.TOML"))
	assert.Equal(t, content.FormatYAML, content.DetectFormat("schema.yml"))
	assert.Equal(t, content.FormatYAML, content.DetectFormat("schema"))
}
