package photobak

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Options configures a Service. It is built once from the configuration file
// and passed in explicitly.
type Options struct {
	RootFolder    string // destination folder holding all backups
	ArchiveFolder string // folder under RootFolder holding archived backups
	Order         Order
	Parallel      int // number of assets processed at once; <1 means 1
	Collision     CollisionPolicy

	// Progress, when set, is called after each photo upload with the number
	// of photos uploaded so far. Calls are serialized.
	Progress func(done, total int, name string)
}

// Outcome tells a completed run apart from a run that found nothing to back up.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoPhotos  Outcome = "no_photos"
)

// BackupResult describes a finished backup pass.
type BackupResult struct {
	Identity     Identity
	Destination  string // identity folder the photos were written to
	ManifestPath string
	Archived     bool
	ArchivePath  string
	Outcome      Outcome
	Manifest     Manifest
}

// Service is the orchestration layer that runs a backup pass for one
// identity against one destination backend.
type Service struct {
	source    PhotoSource
	fetcher   Fetcher
	storage   Storage
	namespace *NamespaceManager
	opts      Options
	logger    Logger
}

// NewService creates a new Service with the provided dependencies.
func NewService(source PhotoSource, fetcher Fetcher, storage Storage, opts Options, logger Logger, clock Clock) *Service {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	return &Service{
		source:    source,
		fetcher:   fetcher,
		storage:   storage,
		namespace: NewNamespaceManager(storage, logger, clock),
		opts:      opts,
		logger:    logger,
	}
}

// Backup runs a complete pass for the account behind handle.
//
// The steps are: resolve the identity, list its photos, prepare the
// destination (archiving a prior backup), upload every photo and finally
// upload the manifest. Any failure aborts the run and no manifest is written.
// Archival already performed is not rolled back.
func (s *Service) Backup(ctx context.Context, handle string) (*BackupResult, error) {
	id, err := s.source.ResolveIdentity(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("resolving identity %q: %w", handle, err)
	}
	if id == "" {
		return nil, fmt.Errorf("resolving identity %q: %w", handle, ErrIdentityNotFound)
	}
	s.logger.Info("identity resolved", "handle", handle, "identity", id.String())

	assets, err := s.source.ListAssets(ctx, id, s.opts.Order)
	if err != nil {
		return nil, fmt.Errorf("listing photos of %s: %w", id, err)
	}
	s.logger.Info("photo list compiled", "identity", id.String(), "count", len(assets))

	if err := s.namespace.EnsureRoot(ctx, s.opts.RootFolder); err != nil {
		return nil, fmt.Errorf("preparing root folder: %w", err)
	}
	archiveBase := path.Join(s.opts.RootFolder, s.opts.ArchiveFolder)
	ready, err := s.namespace.PrepareIdentityFolder(ctx, path.Join(s.opts.RootFolder, id.String()), archiveBase, id)
	if err != nil {
		return nil, fmt.Errorf("preparing destination: %w", err)
	}

	builder := NewManifestBuilder(id)
	result := &BackupResult{
		Identity:     id,
		Destination:  ready.Path,
		ManifestPath: path.Join(ready.Path, ManifestName(id)),
		Archived:     ready.Archived,
		ArchivePath:  ready.ArchivePath,
		Outcome:      OutcomeCompleted,
	}

	if len(assets) == 0 {
		s.logger.Info("no photos to back up", "identity", id.String())
		result.Outcome = OutcomeNoPhotos
	} else {
		names, err := s.processAssets(ctx, ready.Path, assets)
		if err != nil {
			return nil, err
		}
		for i, asset := range assets {
			variant, _ := asset.Largest()
			builder.Record(names[i], variant.Type)
		}
	}

	if err := s.writeManifest(ctx, result.ManifestPath, builder); err != nil {
		return nil, err
	}
	result.Manifest = builder.Manifest()

	s.logger.Info("backup complete", "identity", id.String(), "path", ready.Path, "count", builder.Len())
	return result, nil
}

// processAssets names every asset in listing order, then downloads and
// uploads them, at most opts.Parallel at a time. The returned names are in
// listing order.
func (s *Service) processAssets(ctx context.Context, folder string, assets []PhotoAsset) ([]string, error) {
	for _, asset := range assets {
		if _, err := asset.Largest(); err != nil {
			return nil, err
		}
	}

	namer := NewAssetNamer(s.storage, s.opts.Collision, s.logger)
	names := make([]string, len(assets))
	for i, asset := range assets {
		name, err := namer.Resolve(ctx, folder, asset)
		if err != nil {
			return nil, fmt.Errorf("naming photo %s: %w", asset.ID, err)
		}
		names[i] = name
	}

	var (
		mu   sync.Mutex
		done int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallel)

	for i, asset := range assets {
		g.Go(func() error {
			if err := s.transfer(ctx, folder, names[i], asset); err != nil {
				return err
			}
			if s.opts.Progress != nil {
				mu.Lock()
				done++
				s.opts.Progress(done, len(assets), names[i])
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

// transfer downloads the largest variant of asset and uploads it as name.
func (s *Service) transfer(ctx context.Context, folder, name string, asset PhotoAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	variant, _ := asset.Largest()
	data, err := s.fetcher.Fetch(ctx, variant.URL)
	if err != nil {
		return fmt.Errorf("downloading photo %s: %w", asset.ID, backendError("fetch", variant.URL, err))
	}

	target := path.Join(folder, name)
	if err := s.storage.UploadFile(ctx, target, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("uploading photo %s: %w", asset.ID, backendError("upload", target, err))
	}

	s.logger.Info("photo uploaded", "name", name, "size", variant.Type, "bytes", len(data))
	return nil
}

func (s *Service) writeManifest(ctx context.Context, manifestPath string, builder *ManifestBuilder) error {
	data, err := builder.Finalize()
	if err != nil {
		return err
	}
	if err := s.storage.UploadFile(ctx, manifestPath, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("uploading manifest: %w", backendError("upload", manifestPath, err))
	}
	s.logger.Info("manifest uploaded", "path", manifestPath, "photos", builder.Len())
	return nil
}
