package photobak

import "context"

// IdentityResolver turns a user supplied handle (raw id or alias) into an Identity.
// Implementations return an error wrapping ErrIdentityNotFound when the handle
// matches no account.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, handle string) (Identity, error)
}

// AssetLister lists every photo of an identity in the requested order.
type AssetLister interface {
	ListAssets(ctx context.Context, id Identity, order Order) ([]PhotoAsset, error)
}

// PhotoSource is the source service the photos are backed up from.
type PhotoSource interface {
	IdentityResolver
	AssetLister
}

// Fetcher downloads the bytes behind a size variant URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
