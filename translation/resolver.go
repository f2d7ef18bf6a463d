package translation

import (
	"context"
	"errors"

	"github.com/ZaguanLabs/gotlm/content"
	"github.com/ZaguanLabs/gotlm/store"
)

// storeResolver finds objects in the translation memory: sources in their
// own locale and published translations in theirs.
type storeResolver struct {
	store  *store.Store
	schema *content.Schema
}

// Resolver returns a content.Resolver backed by the service's store.
func (s *Service) Resolver() content.Resolver {
	return &storeResolver{store: s.store, schema: s.schema}
}

func (r *storeResolver) Resolve(ctx context.Context, contentType, translationKey, locale string) (content.Instance, error) {
	src, err := r.store.Source(ctx, contentType, translationKey, locale)
	if err == nil {
		return r.schema.DecodeObject([]byte(src.ContentJSON))
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	data, err := r.store.PublishedContent(ctx, contentType, translationKey, locale)
	if errors.Is(err, store.ErrNotFound) {
		return nil, content.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.schema.DecodeObject([]byte(data))
}
