// Package artifact persists rendered result images to a directory and
// hands back opaque references. Artifacts live for the process lifetime;
// there is no eviction.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/segchat"
)

// Compile-time interface check.
var _ segchat.ArtifactStore = (*Store)(nil)

// Store writes artifacts as files under a single directory, named by
// session id and sequence number.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save persists data under the session's next artifact name and returns
// the reference.
func (s *Store) Save(data []byte, sessionID string, seq int) (segchat.ArtifactRef, error) {
	ref := segchat.ArtifactRef{SessionID: sessionID, Seq: seq}
	path := filepath.Join(s.dir, ref.Name())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return segchat.ArtifactRef{}, fmt.Errorf("save artifact %s: %w", ref.Name(), err)
	}
	return ref, nil
}

// Load reads the artifact's bytes, or fails with ErrArtifactNotFound.
func (s *Store) Load(ref segchat.ArtifactRef) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ref.Name()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref.Name(), segchat.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", ref.Name(), err)
	}
	return data, nil
}
