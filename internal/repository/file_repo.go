package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/darkodi/link-shortener/internal/model"
)

// DefaultFilePath matches the data file name of the console tool
const DefaultFilePath = "./data/user_data.json"

// FileRepository keeps the snapshot as one JSON document on disk
type FileRepository struct {
	path string
}

// NewFileRepository creates a file-backed repository
func NewFileRepository(path string) *FileRepository {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileRepository{path: path}
}

// Load reads the snapshot; a missing file is an empty snapshot
func (r *FileRepository) Load(ctx context.Context) (model.Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewSnapshot(), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read %s: %w", r.path, err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return normalize(snap), nil
}

// Save writes to a temp file and renames it over the old one
func (r *FileRepository) Save(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// Close is a no-op
func (r *FileRepository) Close() error {
	return nil
}
