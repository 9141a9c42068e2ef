// Package store keeps a local content-addressed collection of firmware
// images, keyed by the same SHA-256 hash the device reports per slot.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store manages a content-addressable collection of firmware images.
type Store struct {
	baseDir     string
	imagesDir   string
	metadataDir string
}

// DefaultPath returns the default store path (~/.smpctl/store).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".smpctl", "store"), nil
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	s := &Store{
		baseDir:     path,
		imagesDir:   filepath.Join(path, "images"),
		metadataDir: filepath.Join(path, "metadata"),
	}
	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}
	if err := os.MkdirAll(s.metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata dir: %w", err)
	}
	return s, nil
}

// OpenDefault opens the store at the default path.
func OpenDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Import adds an image to the store. If the image already exists (same
// hash), it only appends the source. Returns the hash and whether the
// image was new.
func (s *Store) Import(data []byte, source Source) (string, bool, error) {
	hash := ContentHash(data)

	imagePath := filepath.Join(s.imagesDir, hash+".bin")
	metaPath := filepath.Join(s.metadataDir, hash+".json")

	isNew := false
	var meta *Metadata

	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		isNew = true
		meta = &Metadata{
			ContentHash: hash,
			Size:        len(data),
			Sources:     []Source{source},
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := os.WriteFile(imagePath, data, 0644); err != nil {
			return "", false, fmt.Errorf("failed to write image: %w", err)
		}
	} else {
		existing, err := s.GetMetadata(hash)
		if err != nil {
			return "", false, fmt.Errorf("failed to read metadata: %w", err)
		}
		meta = existing
		meta.Sources = append(meta.Sources, source)
		meta.UpdatedAt = time.Now()
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", false, fmt.Errorf("failed to write metadata: %w", err)
	}

	return hash, isNew, nil
}

// Get retrieves image data by hash.
func (s *Store) Get(hash string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.imagesDir, hash+".bin"))
}

// GetMetadata retrieves image metadata by hash.
func (s *Store) GetMetadata(hash string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.metadataDir, hash+".json"))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List returns metadata for every stored image, newest first.
func (s *Store) List() ([]*Metadata, error) {
	entries, err := os.ReadDir(s.metadataDir)
	if err != nil {
		return nil, err
	}

	metas := make([]*Metadata, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		meta, err := s.GetMetadata(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Resolve expands a full or shortened hash to the full hash of a stored
// image. It fails if no image or more than one image matches.
func (s *Store) Resolve(prefix string) (string, error) {
	metas, err := s.List()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, meta := range metas {
		if strings.HasPrefix(meta.ContentHash, prefix) {
			matches = append(matches, meta.ContentHash)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no stored image matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d stored images match %q", len(matches), prefix)
	}
}

// Export writes an image to a file.
func (s *Store) Export(hash, destPath string) error {
	data, err := s.Get(hash)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

// Count returns the number of images in the store.
func (s *Store) Count() (int, error) {
	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(metas), nil
}
