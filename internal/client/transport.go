package client

import (
	"context"
	"net/url"

	"github.com/erauner12/toolbridge-resources/internal/resource"
	"github.com/erauner12/toolbridge-resources/internal/syncx"
)

// Transport runs CollectionClient calls as cancellable syncx calls
type Transport struct {
	client *CollectionClient

	// PatchUpdates sends updates with PATCH instead of PUT
	PatchUpdates bool
}

// NewTransport adapts c to syncx.Transport
func NewTransport(c *CollectionClient) *Transport {
	return &Transport{client: c}
}

var _ syncx.Transport = (*Transport)(nil)

func (t *Transport) FetchAll(ctx context.Context, params url.Values) *syncx.Call[[]resource.Attributes] {
	return syncx.Start(ctx, func(ctx context.Context) ([]resource.Attributes, error) {
		items, err := t.client.ListAll(ctx, ListOpts{Params: params})
		if err != nil {
			return nil, err
		}
		out := make([]resource.Attributes, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	})
}

func (t *Transport) Create(ctx context.Context, attrs resource.Attributes) *syncx.Call[resource.Attributes] {
	return syncx.Start(ctx, func(ctx context.Context) (resource.Attributes, error) {
		return t.client.Create(ctx, attrs)
	})
}

func (t *Transport) Update(ctx context.Context, id any, attrs resource.Attributes) *syncx.Call[resource.Attributes] {
	return syncx.Start(ctx, func(ctx context.Context) (resource.Attributes, error) {
		if t.PatchUpdates {
			return t.client.Patch(ctx, id, attrs)
		}
		return t.client.Update(ctx, id, attrs)
	})
}

func (t *Transport) Delete(ctx context.Context, id any) *syncx.Call[struct{}] {
	return syncx.Start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.client.Delete(ctx, id)
	})
}
