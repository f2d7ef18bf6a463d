// Package extract flattens content instances into path-addressed segments.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/ZaguanLabs/gotlm/segment"
)

// Segments walks the translatable fields of inst in declaration order and
// returns their segments. Empty segments are dropped.
func Segments(inst content.Instance) ([]segment.Value, error) {
	segs, err := instanceSegments(inst, "")
	if err != nil {
		return nil, err
	}
	return segment.DropEmpty(segs), nil
}

func join(prefix, component string) string {
	if prefix == "" {
		return component
	}
	return prefix + segment.Separator + component
}

func instanceSegments(inst content.Instance, prefix string) ([]segment.Value, error) {
	var out []segment.Value
	for _, f := range inst.Model().Fields {
		if !f.IsTranslated(inst) {
			continue
		}
		path := join(prefix, f.Name)
		segs, err := fieldSegments(f, inst.Value(f.Name), path)
		if err != nil {
			return nil, err
		}
		out = append(out, segment.WrapAll(f.Name, segs)...)
	}
	return out, nil
}

func fieldSegments(f *content.Field, value any, path string) ([]segment.Value, error) {
	if f.Hook != nil {
		return f.Hook.Extract(value)
	}
	if value == nil {
		return nil, nil
	}

	switch f.Kind {
	case content.FieldPlainText:
		s, err := asString(value, path)
		if err != nil {
			return nil, err
		}
		return []segment.Value{segment.StringFromPlaintext("", s)}, nil

	case content.FieldRichText:
		s, err := asString(value, path)
		if err != nil {
			return nil, err
		}
		return RichText(s)

	case content.FieldStream:
		stream, ok := value.(content.StreamValue)
		if !ok {
			return nil, typeError(path, "stream", value)
		}
		return streamSegments(f.Blocks, stream, path)

	case content.FieldForeignKey:
		return refSegments(value, f.Target, path)

	case content.FieldChildRelation:
		children, ok := value.([]content.Instance)
		if !ok {
			return nil, typeError(path, "child rows", value)
		}
		var out []segment.Value
		for _, child := range children {
			key := child.TranslationKey()
			segs, err := instanceSegments(child, join(path, key))
			if err != nil {
				return nil, err
			}
			out = append(out, segment.WrapAll(key, segs)...)
		}
		return out, nil
	}

	return nil, &gotlm.UnrecognizedTypeError{Path: path, Kind: f.Kind.String()}
}

// RichText splits an HTML value into a template segment (order 0) and one
// string segment per snippet (orders 1..N).
func RichText(html string) ([]segment.Value, error) {
	template, snippets, err := htmlsnippet.Extract(html)
	if err != nil {
		return nil, err
	}
	out := make([]segment.Value, 0, len(snippets)+1)
	out = append(out, segment.NewTemplate("", "html", template, len(snippets)).WithOrder(0))
	for i, s := range snippets {
		out = append(out, segment.NewString("", s).WithOrder(i+1))
	}
	return out, nil
}

func blockSegments(b *content.Block, value any, path string) ([]segment.Value, error) {
	if b.Hook != nil {
		return b.Hook.Extract(value)
	}
	if value == nil {
		return nil, nil
	}

	switch b.Kind {
	case content.BlockChar, content.BlockText:
		s, err := asString(value, path)
		if err != nil {
			return nil, err
		}
		return []segment.Value{segment.StringFromPlaintext("", s)}, nil

	case content.BlockRichText:
		s, err := asString(value, path)
		if err != nil {
			return nil, err
		}
		return RichText(s)

	case content.BlockStruct:
		sv, ok := value.(content.StructValue)
		if !ok {
			return nil, typeError(path, "struct", value)
		}
		var out []segment.Value
		for _, child := range b.Children {
			if child.Synchronized {
				continue
			}
			segs, err := blockSegments(child, sv[child.Name], join(path, child.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, segment.WrapAll(child.Name, segs)...)
		}
		return out, nil

	case content.BlockList:
		lv, ok := value.(content.ListValue)
		if !ok {
			return nil, typeError(path, "list", value)
		}
		var out []segment.Value
		for _, item := range lv {
			segs, err := blockSegments(b.Item, item.Value, join(path, item.ID))
			if err != nil {
				return nil, err
			}
			out = append(out, segment.WrapAll(item.ID, segs)...)
		}
		return out, nil

	case content.BlockStream:
		stream, ok := value.(content.StreamValue)
		if !ok {
			return nil, typeError(path, "stream", value)
		}
		return streamSegments(b, stream, path)

	case content.BlockChooser:
		return refSegments(value, b.Target, path)

	case content.BlockValue:
		return nil, nil
	}

	return nil, &gotlm.UnrecognizedTypeError{Path: path, Kind: b.Kind.String()}
}

func streamSegments(b *content.Block, stream content.StreamValue, path string) ([]segment.Value, error) {
	var out []segment.Value
	for _, child := range stream {
		childPath := join(path, child.ID)
		def, ok := b.Child(child.Type)
		if !ok {
			return nil, &gotlm.UnrecognizedTypeError{Path: childPath, Kind: child.Type}
		}
		segs, err := blockSegments(def, child.Value, childPath)
		if err != nil {
			return nil, err
		}
		out = append(out, segment.WrapAll(child.ID, segs)...)
	}
	return out, nil
}

func refSegments(value any, contentType, path string) ([]segment.Value, error) {
	ref, ok := value.(content.Ref)
	if !ok {
		return nil, typeError(path, "reference", value)
	}
	if ref.ContentType != "" {
		contentType = ref.ContentType
	}
	return []segment.Value{segment.NewRelatedObject("", contentType, ref.TranslationKey)}, nil
}

func asString(value any, path string) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", typeError(path, "string", value)
	}
	return s, nil
}

func typeError(path, want string, got any) error {
	return fmt.Errorf("%s: expected %s value, got %T", path, want, got)
}

// Dependencies returns the related objects inst refers to, directly or
// through other related objects, ordered so that every object comes after
// the objects it refers to. Objects are resolved in inst's locale; ones the
// resolver cannot find are listed but not descended into. Cycles are cut
// by a visited set.
func Dependencies(ctx context.Context, inst content.Instance, resolver content.Resolver) ([]content.Ref, error) {
	type key struct{ contentType, translationKey string }
	visited := map[key]bool{
		{inst.Model().Name, inst.TranslationKey()}: true,
	}

	var out []content.Ref
	var walk func(content.Instance) error
	walk = func(current content.Instance) error {
		segs, err := Segments(current)
		if err != nil {
			return err
		}
		for _, s := range segs {
			rel, ok := s.(segment.RelatedObjectValue)
			if !ok {
				continue
			}
			k := key{rel.ContentType, rel.TranslationKey}
			if visited[k] {
				continue
			}
			visited[k] = true

			related, err := resolver.Resolve(ctx, rel.ContentType, rel.TranslationKey, inst.Locale())
			switch {
			case errors.Is(err, content.ErrNotFound):
			case err != nil:
				return fmt.Errorf("resolve %s %s: %w", rel.ContentType, rel.TranslationKey, err)
			default:
				if err := walk(related); err != nil {
					return err
				}
			}
			out = append(out, content.Ref{
				ContentType:    rel.ContentType,
				TranslationKey: rel.TranslationKey,
				Locale:         inst.Locale(),
			})
		}
		return nil
	}

	if err := walk(inst); err != nil {
		return nil, err
	}
	return out, nil
}
