package content

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Resolver when no object matches.
var ErrNotFound = errors.New("content: object not found")

// Instance is a translatable object: a model, a translation key shared by
// all its locale variants, a locale, and field values.
type Instance interface {
	Model() *Model
	TranslationKey() string
	Locale() string
	Value(field string) any
	SetValue(field string, value any)
	// CopyForLocale returns a deep copy in locale.
	CopyForLocale(locale string) Instance
}

// Overrider is implemented by instances that can opt out of synchronisation
// per field.
type Overrider interface {
	IsOverridden(field string) bool
}

// Resolver finds the locale variant of an object.
type Resolver interface {
	Resolve(ctx context.Context, contentType, translationKey, locale string) (Instance, error)
}

// Object is a map backed Instance.
type Object struct {
	model     *Model
	key       string
	locale    string
	values    map[string]any
	overrides map[string]bool
}

// NewObject returns an empty object.
func NewObject(model *Model, translationKey, locale string) *Object {
	return &Object{
		model:  model,
		key:    translationKey,
		locale: locale,
		values: make(map[string]any),
	}
}

func (o *Object) Model() *Model          { return o.model }
func (o *Object) TranslationKey() string { return o.key }
func (o *Object) Locale() string         { return o.locale }

func (o *Object) Value(field string) any {
	return o.values[field]
}

func (o *Object) SetValue(field string, value any) {
	o.values[field] = value
}

// SetOverridden marks a synchronised field as locally overridden.
func (o *Object) SetOverridden(field string, overridden bool) {
	if o.overrides == nil {
		o.overrides = make(map[string]bool)
	}
	o.overrides[field] = overridden
}

func (o *Object) IsOverridden(field string) bool {
	return o.overrides[field]
}

func (o *Object) CopyForLocale(locale string) Instance {
	out := NewObject(o.model, o.key, locale)
	for k, v := range o.values {
		out.values[k] = Clone(v, locale)
	}
	for k, v := range o.overrides {
		out.SetOverridden(k, v)
	}
	return out
}

// Registry is an in-memory Resolver.
type Registry struct {
	mu      sync.RWMutex
	objects map[registryKey]Instance
}

type registryKey struct {
	contentType, key, locale string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[registryKey]Instance)}
}

// Add registers inst under its content type, key and locale.
func (r *Registry) Add(inst Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[registryKey{inst.Model().Name, inst.TranslationKey(), inst.Locale()}] = inst
}

func (r *Registry) Resolve(_ context.Context, contentType, translationKey, locale string) (Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.objects[registryKey{contentType, translationKey, locale}]
	if !ok {
		return nil, ErrNotFound
	}
	return inst, nil
}
