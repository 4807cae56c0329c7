package photobak

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity is the canonical key of a backup subject, e.g. a numeric account id.
// It is resolved once per run and never changes for the run's duration.
type Identity string

func (id Identity) String() string { return string(id) }

// MarshalJSON writes numeric identities as JSON numbers so manifests keep the
// shape the source service uses ({"id": 1234}); any other identity is a string.
func (id Identity) MarshalJSON() ([]byte, error) {
	s := string(id)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return []byte(s), nil
	}
	return []byte(strconv.Quote(s)), nil
}

// SizeVariant is one available resolution of a photo.
type SizeVariant struct {
	Type string // size-class tag reported by the source, e.g. "w", "z", "y"
	URL  string
}

// PhotoAsset is a single source-side photo.
// Sizes is ordered as the source reports it; the last entry is the largest.
type PhotoAsset struct {
	ID        string
	Likes     int
	CreatedAt time.Time
	Sizes     []SizeVariant
}

// Largest returns the variant selected for backup: the last one in Sizes.
func (a PhotoAsset) Largest() (SizeVariant, error) {
	if len(a.Sizes) == 0 {
		return SizeVariant{}, fmt.Errorf("photo %s has no size variants", a.ID)
	}
	return a.Sizes[len(a.Sizes)-1], nil
}

// Order is the listing order requested from the asset lister.
type Order int

const (
	OrderChronological Order = iota
	OrderReverseChronological
)

func (o Order) String() string {
	switch o {
	case OrderChronological:
		return "chronological"
	case OrderReverseChronological:
		return "reverse-chronological"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder converts a config value into an Order.
// An empty string selects reverse-chronological.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reverse", "reverse-chronological":
		return OrderReverseChronological, nil
	case "chronological":
		return OrderChronological, nil
	default:
		return 0, fmt.Errorf("unknown photo order: %q", s)
	}
}
