// Package assets stores uploaded images on the local filesystem under
// random names and hands back the URL path they are served from.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedType = errors.New("unsupported image type")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type Store struct {
	root      string
	urlPrefix string
}

// NewStore creates the root directory if needed. urlPrefix is the path
// the HTTP layer serves root under, e.g. "/static/uploads".
func NewStore(root, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("assets: failed to create asset root %s: %w", root, err)
	}
	return &Store{root: root, urlPrefix: urlPrefix}, nil
}

// Save writes the uploaded content under a generated name, keeping
// only the original extension. Returns the URL path of the stored
// asset.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("assets: failed to generate asset name: %w", err)
	}
	name := id.String() + ext

	dst := filepath.Join(s.root, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("assets: failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		if rmErr := os.Remove(dst); rmErr != nil {
			log.Error().Err(rmErr).Str("path", dst).Msg("assets: failed to remove partial asset file")
		}
		return "", fmt.Errorf("assets: failed to write asset file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

// Root returns the directory assets are stored in, for the HTTP layer
// to serve as static files.
func (s *Store) Root() string {
	return s.root
}
