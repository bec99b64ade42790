package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
)

const fileExt = ".json"

// FileAdapter keeps each collection in <dir>/<name>.json.
type FileAdapter struct {
	dir    string
	logger logging.Logger
}

func NewFileAdapter(dir string, logger logging.Logger) *FileAdapter {
	return &FileAdapter{dir: dir, logger: logger}
}

func (f *FileAdapter) Path(name string) string {
	return filepath.Join(f.dir, name+fileExt)
}

func (f *FileAdapter) Load(ctx context.Context, name string) ([]domain.Record, error) {
	data, err := os.ReadFile(f.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return []domain.Record{}, nil
	}
	return decodeOrEmpty(ctx, f.logger, name, data), nil
}

// Save writes to a temp file next to the target and renames it over the
// target, so readers never observe a partial collection.
func (f *FileAdapter) Save(ctx context.Context, name string, records []domain.Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.Path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Ping succeeds when the data dir is missing, since Save creates it. It fails
// when the path is not a directory or a file cannot be created in it.
func (f *FileAdapter) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", f.dir)
	}

	tmp, err := os.CreateTemp(f.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("data dir %s is not writable: %w", f.dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}
