// Package ingest rebuilds translated content from segments.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ZaguanLabs/gotlm"
	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/htmlsnippet"
	"github.com/ZaguanLabs/gotlm/segment"
)

// Ingester writes segments back onto translated instances.
type Ingester struct {
	resolver content.Resolver
	logger   *slog.Logger
}

// Option is a functional option for configuring the Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) {
		in.logger = logger
	}
}

// New returns an Ingester resolving related objects with resolver.
func New(resolver content.Resolver, opts ...Option) *Ingester {
	in := &Ingester{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type assignment struct {
	target content.Instance
	field  string
	value  any
}

type run struct {
	*Ingester
	ctx    context.Context
	locale string
	plan   []assignment
}

// Ingest reconstructs the translated fields of target from segments
// extracted from original. Every value is built and every related object
// resolved before target is touched, so on error target is unchanged.
//
// Structure (stream blocks, list items, child rows) comes from target,
// which is expected to hold a synchronised copy of original. Segments
// addressed to blocks or child rows the target does not have are dropped.
func (in *Ingester) Ingest(ctx context.Context, original, target content.Instance, sourceLocale, targetLocale string, segments []segment.Value) error {
	r := &run{Ingester: in, ctx: ctx, locale: targetLocale}
	if err := r.instance(original, target, segments, ""); err != nil {
		return err
	}

	for _, a := range r.plan {
		a.target.SetValue(a.field, a.value)
	}

	in.logger.Debug("ingested segments",
		"content_type", original.Model().Name,
		"translation_key", original.TranslationKey(),
		"source", sourceLocale,
		"target", targetLocale,
		"segments", len(segments),
		"fields", len(r.plan))
	return nil
}

func join(prefix, component string) string {
	if prefix == "" {
		return component
	}
	return prefix + segment.Separator + component
}

func objectName(inst content.Instance) string {
	return inst.Model().Name + " " + inst.TranslationKey()
}

func (r *run) instance(original, target content.Instance, segs []segment.Value, prefix string) error {
	groups, err := segment.GroupByComponent(segs)
	if err != nil {
		return err
	}

	for _, g := range groups {
		path := join(prefix, g.Key)
		f, ok := original.Model().Field(g.Key)
		if !ok {
			return fmt.Errorf("%s: %s has no field %q", path, original.Model().Name, g.Key)
		}
		if !f.IsTranslated(original) {
			r.logger.Debug("skipping segments for untranslated field", "path", path)
			continue
		}

		if f.Kind == content.FieldChildRelation && f.Hook == nil {
			if err := r.children(f, original, target, g.Values, path); err != nil {
				return err
			}
			continue
		}

		current := target.Value(f.Name)
		if current == nil {
			current = original.Value(f.Name)
		}
		value, err := r.field(f, content.Clone(current, ""), g.Values, path, objectName(target))
		if err != nil {
			return err
		}
		r.plan = append(r.plan, assignment{target: target, field: f.Name, value: value})
	}
	return nil
}

func (r *run) children(f *content.Field, original, target content.Instance, segs []segment.Value, path string) error {
	groups, err := segment.GroupByComponent(segs)
	if err != nil {
		return err
	}
	targetRows, _ := target.Value(f.Name).([]content.Instance)
	originalRows, _ := original.Value(f.Name).([]content.Instance)

	for _, g := range groups {
		row := findRow(targetRows, g.Key)
		if row == nil {
			// TODO: create the missing child row instead of dropping its segments.
			r.logger.Debug("dropping segments for child row missing on target",
				"path", join(path, g.Key),
				"segments", len(g.Values))
			continue
		}
		source := findRow(originalRows, g.Key)
		if source == nil {
			source = row
		}
		if err := r.instance(source, row, g.Values, join(path, g.Key)); err != nil {
			return err
		}
	}
	return nil
}

func findRow(rows []content.Instance, key string) content.Instance {
	for _, row := range rows {
		if row.TranslationKey() == key {
			return row
		}
	}
	return nil
}

func (r *run) field(f *content.Field, current any, segs []segment.Value, path, obj string) (any, error) {
	if f.Hook != nil {
		return f.Hook.Restore(current, segs)
	}

	switch f.Kind {
	case content.FieldPlainText:
		s, err := singleString(segs, path, obj)
		if err != nil {
			return nil, err
		}
		return s.RenderText(), nil

	case content.FieldRichText:
		return richText(segs, path, obj)

	case content.FieldStream:
		stream, _ := current.(content.StreamValue)
		if err := r.stream(f.Blocks, stream, segs, path, obj); err != nil {
			return nil, err
		}
		return stream, nil

	case content.FieldForeignKey:
		return r.related(segs, path, obj)
	}

	return nil, &gotlm.UnrecognizedTypeError{Path: path, Kind: f.Kind.String()}
}

func (r *run) stream(b *content.Block, stream content.StreamValue, segs []segment.Value, path, obj string) error {
	groups, err := segment.GroupByComponent(segs)
	if err != nil {
		return err
	}
	for _, g := range groups {
		childPath := join(path, g.Key)
		i := findBlock(stream, g.Key)
		if i < 0 {
			r.logger.Debug("dropping segments for block missing on target", "path", childPath)
			continue
		}
		def, ok := b.Child(stream[i].Type)
		if !ok {
			return &gotlm.UnrecognizedTypeError{Path: childPath, Kind: stream[i].Type}
		}
		value, err := r.block(def, stream[i].Value, g.Values, childPath, obj)
		if err != nil {
			return err
		}
		stream[i].Value = value
	}
	return nil
}

func findBlock(stream content.StreamValue, id string) int {
	for i, c := range stream {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (r *run) block(b *content.Block, value any, segs []segment.Value, path, obj string) (any, error) {
	if b.Hook != nil {
		return b.Hook.Restore(value, segs)
	}

	switch b.Kind {
	case content.BlockChar, content.BlockText:
		s, err := singleString(segs, path, obj)
		if err != nil {
			return nil, err
		}
		return s.RenderText(), nil

	case content.BlockRichText:
		return richText(segs, path, obj)

	case content.BlockStruct:
		sv, _ := value.(content.StructValue)
		if sv == nil {
			sv = content.StructValue{}
		}
		groups, err := segment.GroupByComponent(segs)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			member, ok := b.Child(g.Key)
			if !ok {
				return nil, fmt.Errorf("%s: struct block %s has no member %q", path, b.Name, g.Key)
			}
			v, err := r.block(member, sv[g.Key], g.Values, join(path, g.Key), obj)
			if err != nil {
				return nil, err
			}
			sv[g.Key] = v
		}
		return sv, nil

	case content.BlockList:
		lv, _ := value.(content.ListValue)
		groups, err := segment.GroupByComponent(segs)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			i := findItem(lv, g.Key)
			if i < 0 {
				r.logger.Debug("dropping segments for list item missing on target", "path", join(path, g.Key))
				continue
			}
			v, err := r.block(b.Item, lv[i].Value, g.Values, join(path, g.Key), obj)
			if err != nil {
				return nil, err
			}
			lv[i].Value = v
		}
		return lv, nil

	case content.BlockStream:
		stream, _ := value.(content.StreamValue)
		if err := r.stream(b, stream, segs, path, obj); err != nil {
			return nil, err
		}
		return stream, nil

	case content.BlockChooser:
		return r.related(segs, path, obj)
	}

	return nil, &gotlm.UnrecognizedTypeError{Path: path, Kind: b.Kind.String()}
}

func findItem(list content.ListValue, id string) int {
	for i, item := range list {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func singleString(segs []segment.Value, path, obj string) (segment.StringValue, error) {
	var found []segment.StringValue
	for _, v := range segs {
		if s, ok := v.(segment.StringValue); ok {
			found = append(found, s)
		}
	}
	if len(found) != 1 {
		return segment.StringValue{}, &gotlm.MissingSegmentsError{Target: obj, Path: path, Expected: 1, Got: len(found)}
	}
	return found[0], nil
}

// richText restores a template and its strings. Strings are placed by
// order, not by their position in segs.
func richText(segs []segment.Value, path, obj string) (string, error) {
	var template *segment.TemplateValue
	var snippets []htmlsnippet.Snippet
	for _, v := range segment.SortByOrder(segs) {
		switch v := v.(type) {
		case segment.TemplateValue:
			if template != nil {
				return "", fmt.Errorf("%s: more than one template", path)
			}
			template = &v
		case segment.StringValue:
			snippets = append(snippets, v.Effective())
		}
	}
	if template == nil {
		return "", &gotlm.MissingSegmentsError{Target: obj, Path: path, Expected: 1, Got: 0}
	}
	if len(snippets) != template.SegmentCount {
		return "", &gotlm.MissingSegmentsError{Target: obj, Path: path, Expected: template.SegmentCount, Got: len(snippets)}
	}
	return htmlsnippet.Restore(template.Template, snippets)
}

func (r *run) related(segs []segment.Value, path, obj string) (content.Ref, error) {
	var found []segment.RelatedObjectValue
	for _, v := range segs {
		if rel, ok := v.(segment.RelatedObjectValue); ok {
			found = append(found, rel)
		}
	}
	if len(found) != 1 {
		return content.Ref{}, &gotlm.MissingSegmentsError{Target: obj, Path: path, Expected: 1, Got: len(found)}
	}
	rel := found[0]

	missing := &gotlm.MissingRelatedObjectError{
		Path:           path,
		ContentType:    rel.ContentType,
		TranslationKey: rel.TranslationKey,
		Locale:         r.locale,
	}
	if r.resolver == nil {
		return content.Ref{}, missing
	}
	inst, err := r.resolver.Resolve(r.ctx, rel.ContentType, rel.TranslationKey, r.locale)
	if errors.Is(err, content.ErrNotFound) {
		return content.Ref{}, missing
	}
	if err != nil {
		return content.Ref{}, fmt.Errorf("%s: resolve %s %s: %w", path, rel.ContentType, rel.TranslationKey, err)
	}
	return content.RefOf(inst), nil
}
