package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
)

// FileStore keeps uploaded PDFs verbatim under one directory. Names are
// reduced to their base name; a second upload with the same name replaces
// the first.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// CleanName returns the stored name for an uploaded filename.
func CleanName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: invalid filename %q", models.ErrInvalidArgument, filename)
	}
	return name, nil
}

// Save writes data to a temp file and renames it into place.
func (s *FileStore) Save(filename string, data []byte) (string, error) {
	name, err := CleanName(filename)
	if err != nil {
		return "", err
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(s.dir, "."+id+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %w", models.ErrStorage, name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: failed to store %s: %w", models.ErrStorage, name, err)
	}

	log.Debug().Str("file", name).Int("bytes", len(data)).Msg("Stored PDF")
	return name, nil
}

// Read returns the stored bytes, or models.ErrFileNotFound.
func (s *FileStore) Read(filename string) ([]byte, error) {
	name, err := CleanName(filename)
	if err != nil {
		return nil, err
	}
	if name != filename {
		return nil, fmt.Errorf("%w: %s", models.ErrFileNotFound, filename)
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return nil, fmt.Errorf("%w: %s", models.ErrFileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat %s: %w", models.ErrStorage, name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", models.ErrStorage, name, err)
	}
	return data, nil
}
