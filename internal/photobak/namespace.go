package photobak

import (
	"context"
	"fmt"
	"path"
)

// archiveStampLayout suffixes an archive folder when the plain
// archive/<identity> target is already taken by an earlier archive.
const archiveStampLayout = "20060102T150405Z"

// DestinationReady describes an identity folder that is empty and ready for
// the current run.
type DestinationReady struct {
	Path        string
	Archived    bool
	ArchivePath string // set when a prior backup was relocated
}

// NamespaceManager inspects and mutates the destination folder tree.
// It assumes exclusive access to the namespace for the duration of a run and
// queries the backend on every check.
type NamespaceManager struct {
	storage Storage
	logger  Logger
	clock   Clock
}

// NewNamespaceManager creates a NamespaceManager over the given backend.
func NewNamespaceManager(storage Storage, logger Logger, clock Clock) *NamespaceManager {
	return &NamespaceManager{storage: storage, logger: logger, clock: clock}
}

// exists runs one existence query. A StateError result is fatal.
func (m *NamespaceManager) exists(ctx context.Context, p string) (bool, error) {
	st := m.storage.Status(ctx, p)
	switch st.State {
	case StatePresent:
		return true, nil
	case StateAbsent:
		return false, nil
	default:
		return false, backendError("status", p, st.Err)
	}
}

// EnsureRoot creates the folder at rootPath if it is absent, along with any
// missing parent folders. A present folder is left alone.
func (m *NamespaceManager) EnsureRoot(ctx context.Context, rootPath string) error {
	ok, err := m.exists(ctx, rootPath)
	if err != nil {
		return err
	}
	if ok {
		m.logger.Debug("folder exists", "path", rootPath)
		return nil
	}

	if parent := path.Dir(rootPath); parent != "." && parent != "/" {
		if err := m.EnsureRoot(ctx, parent); err != nil {
			return err
		}
	}
	if err := m.storage.CreateFolder(ctx, rootPath); err != nil {
		return backendError("create folder", rootPath, err)
	}
	m.logger.Info("folder created", "path", rootPath)
	return nil
}

// PrepareIdentityFolder guarantees an empty folder at identityPath.
// A prior folder at that path is moved under archiveBase, never deleted.
func (m *NamespaceManager) PrepareIdentityFolder(ctx context.Context, identityPath, archiveBase string, id Identity) (*DestinationReady, error) {
	ok, err := m.exists(ctx, identityPath)
	if err != nil {
		return nil, err
	}

	ready := &DestinationReady{Path: identityPath}
	if ok {
		m.logger.Info("folder is out of date", "path", identityPath)

		archivePath, err := m.archiveTarget(ctx, archiveBase, id)
		if err != nil {
			return nil, err
		}
		if err := m.storage.MoveFolder(ctx, identityPath, archivePath); err != nil {
			return nil, backendError("move folder", identityPath, err)
		}
		m.logger.Info("folder archived", "path", identityPath, "archive", archivePath)

		ready.Archived = true
		ready.ArchivePath = archivePath
	}

	if err := m.storage.CreateFolder(ctx, identityPath); err != nil {
		return nil, backendError("create folder", identityPath, err)
	}
	m.logger.Info("folder created", "path", identityPath)

	return ready, nil
}

// archiveTarget makes sure archiveBase exists and picks a free archive path
// for the identity.
func (m *NamespaceManager) archiveTarget(ctx context.Context, archiveBase string, id Identity) (string, error) {
	if err := m.EnsureRoot(ctx, archiveBase); err != nil {
		return "", fmt.Errorf("preparing archive folder: %w", err)
	}

	target := path.Join(archiveBase, id.String())
	taken, err := m.exists(ctx, target)
	if err != nil {
		return "", err
	}
	if !taken {
		return target, nil
	}

	stamped := target + "." + m.clock.Now().UTC().Format(archiveStampLayout)
	taken, err = m.exists(ctx, stamped)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("archive target already exists: %s", stamped)
	}
	m.logger.Warn("archive already holds an earlier backup", "path", target, "archive", stamped)
	return stamped, nil
}
