// Package blob stores image objects under images/{userId}/{imageId}.webp
// with a JSON metadata sidecar. A blocked metadata flag suppresses serving
// without removing the bytes.
package blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// Metadata is the per-object sidecar.
type Metadata struct {
	ContentType string `json:"contentType"`
	Blocked     bool   `json:"blocked"`
}

// Store reads and writes image objects on an afero filesystem (OS-backed in
// production, in-memory in tests).
type Store struct {
	fs afero.Fs
}

// New creates a store over fs.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOS creates a store rooted at dir on the real filesystem.
func NewOS(dir string) *Store {
	return &Store{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}
}

func objectPath(userID, imageID string) string {
	return path.Join("images", userID, imageID+".webp")
}

func metaPath(userID, imageID string) string {
	return path.Join("images", userID, imageID+".json")
}

// Save writes the object bytes and its metadata sidecar.
func (s *Store) Save(userID, imageID string, data []byte, contentType string) error {
	dir := path.Join("images", userID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := afero.WriteFile(s.fs, objectPath(userID, imageID), data, 0o644); err != nil {
		return err
	}
	return s.writeMeta(userID, imageID, Metadata{ContentType: contentType})
}

// Exists reports whether the object bytes are present.
func (s *Store) Exists(userID, imageID string) (bool, error) {
	return afero.Exists(s.fs, objectPath(userID, imageID))
}

// Download returns the object bytes and metadata. Blocked objects are not
// served: the caller receives os.ErrNotExist.
func (s *Store) Download(userID, imageID string) ([]byte, *Metadata, error) {
	meta, err := s.readMeta(userID, imageID)
	if err != nil {
		return nil, nil, err
	}
	if meta.Blocked {
		return nil, nil, os.ErrNotExist
	}
	data, err := afero.ReadFile(s.fs, objectPath(userID, imageID))
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// SetBlocked flips the blocked metadata flag on one object.
func (s *Store) SetBlocked(userID, imageID string, blocked bool) error {
	meta, err := s.readMeta(userID, imageID)
	if err != nil {
		return err
	}
	meta.Blocked = blocked
	return s.writeMeta(userID, imageID, *meta)
}

// BlockAll marks every object owned by userID as blocked.
func (s *Store) BlockAll(userID string) error {
	dir := path.Join("images", userID)
	entries, err := afero.ReadDir(s.fs, dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".webp" {
			continue
		}
		imageID := e.Name()[:len(e.Name())-len(".webp")]
		if err := s.SetBlocked(userID, imageID, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) readMeta(userID, imageID string) (*Metadata, error) {
	raw, err := afero.ReadFile(s.fs, metaPath(userID, imageID))
	if os.IsNotExist(err) {
		// Objects written before sidecars existed default to servable webp.
		exists, eerr := s.Exists(userID, imageID)
		if eerr != nil {
			return nil, eerr
		}
		if !exists {
			return nil, os.ErrNotExist
		}
		return &Metadata{ContentType: "image/webp"}, nil
	}
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s/%s: %w", userID, imageID, err)
	}
	return &meta, nil
}

func (s *Store) writeMeta(userID, imageID string, meta Metadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, metaPath(userID, imageID), raw, 0o644)
}
