// Package workspace owns the per-request scratch directories of the pipeline.
//
// Every render gets a fresh directory named by a random UUID under a shared
// root. Tool outputs land at fixed names inside it, so concurrent requests
// never see each other's files.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/alnah/go-texsnap/internal/fileutil"
)

// Fixed file names inside a workspace.
const (
	JobName          = "document"
	SourceFile       = JobName + ".tex"
	BibliographyFile = "references.bib"
	ArtifactFile     = JobName + ".pdf"
	CroppedFile      = JobName + "-cropped.pdf"
	RasterFile       = JobName + ".png"
)

// Sentinel errors for workspace operations.
var (
	ErrEmptyRoot = errors.New("scratch root cannot be empty")
	ErrReleased  = errors.New("workspace already released")
)

// Workspace is one request's scratch directory.
type Workspace struct {
	ID  string
	Dir string

	once sync.Once
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// HasBibliography reports whether a bibliography file was written.
func (w *Workspace) HasBibliography() bool {
	return fileutil.FileExists(w.Path(BibliographyFile))
}

// Manager allocates and releases workspaces under a root directory.
type Manager struct {
	root  string
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager creates root if needed and returns a Manager for it.
func NewManager(root string, opts ...Option) (*Manager, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving scratch root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}

	m := &Manager{root: abs, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// DefaultRoot is the scratch root used when none is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "texsnap")
}

// Root returns the absolute scratch root.
func (m *Manager) Root() string {
	return m.root
}

// Allocate creates a new, empty workspace. The directory is created with
// os.Mkdir, so an identifier collision fails instead of sharing a directory.
func (m *Manager) Allocate() (*Workspace, error) {
	id := m.newID()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("allocating workspace %s: %w", id, err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// WriteSource writes the assembled document source.
func (m *Manager) WriteSource(ws *Workspace, text string) error {
	return writeFile(ws, SourceFile, text)
}

// WriteBibliography writes the bibliography entries.
func (m *Manager) WriteBibliography(ws *Workspace, entries string) error {
	return writeFile(ws, BibliographyFile, entries)
}

// Release removes the workspace directory and everything in it.
// Only the first call does any work; later calls return ErrReleased.
func (m *Manager) Release(ws *Workspace) error {
	err := ErrReleased
	ws.once.Do(func() {
		err = os.RemoveAll(ws.Dir)
		if err != nil {
			err = fmt.Errorf("releasing workspace %s: %w", ws.ID, err)
		}
	})
	return err
}

func writeFile(ws *Workspace, name, text string) error {
	if err := os.WriteFile(ws.Path(name), []byte(text), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
