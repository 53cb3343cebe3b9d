package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/michaelbrown/opencompiler/internal/profile"
	"github.com/michaelbrown/opencompiler/internal/sqldriver"
)

// Workspace materializes submitted source text into a scratch directory.
//
// In shared mode every run of a language reuses the same file names under
// the root, which is only safe while runs are serialized. In isolated mode
// each run gets its own subdirectory named after the run id.
type Workspace struct {
	root    string
	isolate bool
}

// Paths are the absolute locations used by one run.
type Paths struct {
	Dir      string
	Source   string
	Artifact string
}

// New creates a Workspace rooted at root. The directory is created lazily.
func New(root string, isolate bool) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace %s: %w", root, err)
	}
	return &Workspace{root: abs, isolate: isolate}, nil
}

// Root returns the absolute scratch root.
func (w *Workspace) Root() string {
	return w.root
}

// Isolated reports whether runs get private subdirectories.
func (w *Workspace) Isolated() bool {
	return w.isolate
}

// Dir returns the scratch directory for a run.
func (w *Workspace) Dir(runID string) string {
	if w.isolate && runID != "" {
		return filepath.Join(w.root, runID)
	}
	return w.root
}

// Prepare writes source to the profile's fixed file name, overwriting any
// previous file, and returns the paths the build and run steps use.
func (w *Workspace) Prepare(p profile.Profile, runID, source string) (Paths, error) {
	dir := w.Dir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating workspace: %w", err)
	}

	paths := Paths{
		Dir:    dir,
		Source: filepath.Join(dir, p.SourceName()),
	}
	if name := p.ArtifactName(); name != "" {
		paths.Artifact = filepath.Join(dir, name)
	}

	content := []byte(source)
	if p.Driver == profile.DriverSQL {
		content = sqldriver.Generate(source)
	}

	if err := os.WriteFile(paths.Source, content, 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing source file: %w", err)
	}
	return paths, nil
}

// Release removes a run's private directory. Shared directories are kept.
func (w *Workspace) Release(runID string) error {
	if !w.isolate || runID == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir(runID)); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	return nil
}
