package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a schema file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DetectFormat picks a format from a file extension, defaulting to YAML.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// Schema is a set of models loaded from a schema file.
type Schema struct {
	models map[string]*Model
	order  []string
	hooks  map[string]SegmentHook
}

// SchemaOption configures schema loading.
type SchemaOption func(*Schema)

// WithHook makes a segment hook available to fields and blocks that name it.
func WithHook(name string, hook SegmentHook) SchemaOption {
	return func(s *Schema) {
		s.hooks[name] = hook
	}
}

type schemaFile struct {
	Models []modelDecl `yaml:"models" toml:"models"`
}

type modelDecl struct {
	Name         string      `yaml:"name" toml:"name"`
	Translatable bool        `yaml:"translatable" toml:"translatable"`
	Fields       []fieldDecl `yaml:"fields" toml:"fields"`
}

type fieldDecl struct {
	Name         string      `yaml:"name" toml:"name"`
	Kind         string      `yaml:"kind" toml:"kind"`
	Translatable bool        `yaml:"translatable" toml:"translatable"`
	Synchronized bool        `yaml:"synchronized" toml:"synchronized"`
	Overridable  bool        `yaml:"overridable" toml:"overridable"`
	Required     bool        `yaml:"required" toml:"required"`
	MaxLength    int         `yaml:"max_length" toml:"max_length"`
	Target       string      `yaml:"target" toml:"target"`
	Child        string      `yaml:"child" toml:"child"`
	Hook         string      `yaml:"hook" toml:"hook"`
	Blocks       []blockDecl `yaml:"blocks" toml:"blocks"`
}

type blockDecl struct {
	Name         string      `yaml:"name" toml:"name"`
	Kind         string      `yaml:"kind" toml:"kind"`
	Target       string      `yaml:"target" toml:"target"`
	Synchronized bool        `yaml:"synchronized" toml:"synchronized"`
	Hook         string      `yaml:"hook" toml:"hook"`
	Children     []blockDecl `yaml:"children" toml:"children"`
	Item         *blockDecl  `yaml:"item" toml:"item"`
}

// LoadSchema reads a YAML or TOML schema file.
func LoadSchema(path string, opts ...SchemaOption) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data, DetectFormat(path), opts...)
}

// ParseSchema parses schema data in the given format.
func ParseSchema(data []byte, format Format, opts ...SchemaOption) (*Schema, error) {
	var file schemaFile
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("parse TOML schema: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse YAML schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema format %q", format)
	}

	s := &Schema{
		models: make(map[string]*Model),
		hooks:  make(map[string]SegmentHook),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.build(file); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSchema builds a schema from models declared in code.
func NewSchema(models ...*Model) *Schema {
	s := &Schema{models: make(map[string]*Model), hooks: make(map[string]SegmentHook)}
	for _, m := range models {
		s.Add(m)
	}
	return s
}

// Add registers a model and resolves foreign key targets against the
// models known so far.
func (s *Schema) Add(m *Model) {
	if _, ok := s.models[m.Name]; !ok {
		s.order = append(s.order, m.Name)
	}
	s.models[m.Name] = m
	s.resolveTargets()
}

func (s *Schema) resolveTargets() {
	for _, m := range s.models {
		for _, f := range m.Fields {
			if f.Kind == FieldForeignKey {
				target, ok := s.models[f.Target]
				f.SetTargetTranslatable(ok && target.Translatable)
			}
		}
	}
}

// Model returns the model for a content type.
func (s *Schema) Model(contentType string) (*Model, bool) {
	m, ok := s.models[contentType]
	return m, ok
}

// Models returns all models in declaration order.
func (s *Schema) Models() []*Model {
	out := make([]*Model, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.models[name])
	}
	return out
}

func (s *Schema) build(file schemaFile) error {
	// Declare every model first so child relations can refer forward.
	for _, md := range file.Models {
		if md.Name == "" {
			return fmt.Errorf("model without a name")
		}
		if _, dup := s.models[md.Name]; dup {
			return fmt.Errorf("model %s declared twice", md.Name)
		}
		s.models[md.Name] = &Model{Name: md.Name, Translatable: md.Translatable}
		s.order = append(s.order, md.Name)
	}

	for _, md := range file.Models {
		m := s.models[md.Name]
		for _, fd := range md.Fields {
			f, err := s.buildField(fd)
			if err != nil {
				return fmt.Errorf("model %s: %w", md.Name, err)
			}
			m.Fields = append(m.Fields, f)
		}
		m.reindex()
	}

	s.resolveTargets()
	return nil
}

func (s *Schema) buildField(fd fieldDecl) (*Field, error) {
	kind, err := ParseFieldKind(fd.Kind)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	f := &Field{
		Name:         fd.Name,
		Kind:         kind,
		Translatable: fd.Translatable,
		Synchronized: fd.Synchronized,
		Overridable:  fd.Overridable,
		Required:     fd.Required,
		MaxLength:    fd.MaxLength,
		Target:       fd.Target,
	}

	if fd.Hook != "" {
		hook, ok := s.hooks[fd.Hook]
		if !ok {
			return nil, fmt.Errorf("field %s: unknown hook %q", fd.Name, fd.Hook)
		}
		f.Hook = hook
	}

	switch kind {
	case FieldStream:
		root := &Block{Name: fd.Name, Kind: BlockStream}
		for _, bd := range fd.Blocks {
			b, err := s.buildBlock(bd)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.Name, err)
			}
			root.Children = append(root.Children, b)
		}
		f.Blocks = root
	case FieldChildRelation:
		child, ok := s.models[fd.Child]
		if !ok {
			return nil, fmt.Errorf("field %s: unknown child model %q", fd.Name, fd.Child)
		}
		f.Child = child
	case FieldForeignKey, FieldManyToMany:
		if fd.Target == "" {
			return nil, fmt.Errorf("field %s: %s needs a target", fd.Name, kind)
		}
	}
	return f, nil
}

func (s *Schema) buildBlock(bd blockDecl) (*Block, error) {
	b := &Block{
		Name:         bd.Name,
		Kind:         ParseBlockKind(bd.Kind),
		Target:       bd.Target,
		Synchronized: bd.Synchronized,
	}
	if bd.Hook != "" {
		hook, ok := s.hooks[bd.Hook]
		if !ok {
			return nil, fmt.Errorf("block %s: unknown hook %q", bd.Name, bd.Hook)
		}
		b.Hook = hook
	}
	for _, cd := range bd.Children {
		c, err := s.buildBlock(cd)
		if err != nil {
			return nil, err
		}
		b.Children = append(b.Children, c)
	}
	if bd.Item != nil {
		item, err := s.buildBlock(*bd.Item)
		if err != nil {
			return nil, err
		}
		b.Item = item
	}
	if b.Kind == BlockList && b.Item == nil {
		return nil, fmt.Errorf("list block %s has no item type", bd.Name)
	}
	return b, nil
}
