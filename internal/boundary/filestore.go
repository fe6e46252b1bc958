package boundary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileImageStore resolves image refs as paths under a root directory.
type FileImageStore struct {
	root string
}

// NewFileImageStore creates an image store rooted at dir.
func NewFileImageStore(dir string) *FileImageStore {
	return &FileImageStore{root: dir}
}

// Get reads the image bytes for a ref. Refs escaping the root are rejected.
func (s *FileImageStore) Get(_ context.Context, ref string) ([]byte, error) {
	path := filepath.Join(s.root, filepath.Clean("/"+ref))
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) && path != filepath.Clean(s.root) {
		return nil, fmt.Errorf("image ref %q outside store root", ref)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is confined to the store root above
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}

	return data, nil
}
