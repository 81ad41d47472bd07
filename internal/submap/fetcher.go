package submap

import (
	"context"
	"errors"
)

// ErrNoTextures is returned by the reconciler when a nominally successful
// fetch carries zero textures. The fetch contract guarantees non-empty on
// success, so this indicates a misbehaving backend rather than a transient
// failure; the reconciler logs it and aborts the pass.
var ErrNoTextures = errors.New("submap: fetch result contains no textures")

// TextureFetcher retrieves the textures for one submap from the mapping
// backend. Implementations must bound their wait; a failed fetch is retried
// on the next notification, never synchronously.
type TextureFetcher interface {
	Fetch(ctx context.Context, id ID) (*FetchedTextures, error)
}

// FetcherFunc adapts a function to the TextureFetcher interface.
type FetcherFunc func(ctx context.Context, id ID) (*FetchedTextures, error)

// Fetch implements TextureFetcher.
func (f FetcherFunc) Fetch(ctx context.Context, id ID) (*FetchedTextures, error) {
	return f(ctx, id)
}
