package photobak

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
)

// NameTimeLayout formats the creation time appended to colliding names.
const NameTimeLayout = "2006-01-02 15:04:05"

// maxProbe bounds the numbered suffixes tried by CollisionProbe.
const maxProbe = 100

// CollisionPolicy decides what happens when the fallback name is taken too.
type CollisionPolicy int

const (
	// CollisionSingle applies the timestamp fallback once without checking it.
	// A second collision overwrites the file already there.
	CollisionSingle CollisionPolicy = iota

	// CollisionProbe checks the fallback and then numbered variants of it
	// until a free name is found.
	CollisionProbe
)

// ParseCollisionPolicy converts a config value into a CollisionPolicy.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return CollisionSingle, nil
	case "probe":
		return CollisionProbe, nil
	default:
		return 0, fmt.Errorf("unknown collision policy: %q", s)
	}
}

// PrimaryName returns <likes>.jpg.
func PrimaryName(a PhotoAsset) string {
	return fmt.Sprintf("%d.jpg", a.Likes)
}

// FallbackName returns <likes>_<YYYY-MM-DD HH:MM:SS>.jpg.
func FallbackName(a PhotoAsset) string {
	return fmt.Sprintf("%d_%s.jpg", a.Likes, a.CreatedAt.Format(NameTimeLayout))
}

// AssetNamer picks destination file names for assets.
// Resolve calls are serialized so that concurrent workers cannot pick the
// same name, and names handed out during the run count as taken.
type AssetNamer struct {
	storage Storage
	policy  CollisionPolicy
	logger  Logger

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewAssetNamer creates an AssetNamer for one run.
func NewAssetNamer(storage Storage, policy CollisionPolicy, logger Logger) *AssetNamer {
	return &AssetNamer{
		storage: storage,
		policy:  policy,
		logger:  logger,
		claimed: make(map[string]struct{}),
	}
}

// Resolve returns the file name to upload asset under inside folder.
func (n *AssetNamer) Resolve(ctx context.Context, folder string, asset PhotoAsset) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	primary := PrimaryName(asset)
	taken, err := n.taken(ctx, folder, primary)
	if err != nil {
		return "", err
	}
	if !taken {
		return n.claim(folder, primary), nil
	}

	fallback := FallbackName(asset)
	n.logger.Info("photo name already exists", "name", primary, "renamed", fallback)

	if n.policy == CollisionSingle {
		return n.claim(folder, fallback), nil
	}

	taken, err = n.taken(ctx, folder, fallback)
	if err != nil {
		return "", err
	}
	if !taken {
		return n.claim(folder, fallback), nil
	}

	base := strings.TrimSuffix(fallback, ".jpg")
	for i := 2; i <= maxProbe; i++ {
		candidate := fmt.Sprintf("%s_%d.jpg", base, i)
		taken, err := n.taken(ctx, folder, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			n.logger.Info("photo name probed", "name", fallback, "renamed", candidate)
			return n.claim(folder, candidate), nil
		}
	}

	return "", fmt.Errorf("%w for photo %s in %s", ErrNameExhausted, asset.ID, folder)
}

func (n *AssetNamer) taken(ctx context.Context, folder, name string) (bool, error) {
	p := path.Join(folder, name)
	if _, ok := n.claimed[p]; ok {
		return true, nil
	}

	st := n.storage.Status(ctx, p)
	switch st.State {
	case StatePresent:
		return true, nil
	case StateAbsent:
		return false, nil
	default:
		return false, backendError("status", p, st.Err)
	}
}

func (n *AssetNamer) claim(folder, name string) string {
	n.claimed[path.Join(folder, name)] = struct{}{}
	return name
}
