package testutil

import (
	"context"
	"fmt"
	"sync"

	"photobak/internal/photobak"
)

// FakeSource is an in-memory photobak.PhotoSource.
// Handles maps user supplied handles to identities; Assets holds the listing
// for each identity in reverse-chronological order.
type FakeSource struct {
	Handles map[string]photobak.Identity
	Assets  map[photobak.Identity][]photobak.PhotoAsset

	// ListErr, when set, is returned by ListAssets.
	ListErr error

	mu     sync.Mutex
	orders []photobak.Order
}

var _ photobak.PhotoSource = (*FakeSource)(nil)

func NewFakeSource() *FakeSource {
	return &FakeSource{
		Handles: make(map[string]photobak.Identity),
		Assets:  make(map[photobak.Identity][]photobak.PhotoAsset),
	}
}

// AddIdentity registers id under each of the given handles and under its own
// string form.
func (s *FakeSource) AddIdentity(id photobak.Identity, assets []photobak.PhotoAsset, handles ...string) {
	s.Handles[id.String()] = id
	for _, h := range handles {
		s.Handles[h] = id
	}
	s.Assets[id] = assets
}

func (s *FakeSource) ResolveIdentity(_ context.Context, handle string) (photobak.Identity, error) {
	id, ok := s.Handles[handle]
	if !ok {
		return "", fmt.Errorf("%w: %s", photobak.ErrIdentityNotFound, handle)
	}
	return id, nil
}

func (s *FakeSource) ListAssets(_ context.Context, id photobak.Identity, order photobak.Order) ([]photobak.PhotoAsset, error) {
	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}
	assets := s.Assets[id]
	out := make([]photobak.PhotoAsset, len(assets))
	if order == photobak.OrderChronological {
		for i, a := range assets {
			out[len(assets)-1-i] = a
		}
	} else {
		copy(out, assets)
	}
	return out, nil
}

// Orders returns the order argument of every ListAssets call.
func (s *FakeSource) Orders() []photobak.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]photobak.Order(nil), s.orders...)
}

// FakeFetcher serves canned bytes by URL. Unknown URLs return URL-derived
// content so tests only need to register the URLs they care about.
type FakeFetcher struct {
	mu    sync.Mutex
	Data  map[string][]byte
	Errs  map[string]error
	calls []string
}

var _ photobak.Fetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		Data: make(map[string][]byte),
		Errs: make(map[string]error),
	}
}

func (f *FakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.Errs[url]; ok {
		return nil, err
	}
	if data, ok := f.Data[url]; ok {
		return data, nil
	}
	return []byte("content of " + url), nil
}

// Calls returns the URLs fetched so far.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
