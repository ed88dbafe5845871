package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/optiondesk/marketdata/internal/catalog"
)

// File stores the catalog snapshot as a JSON file on local disk.
type File struct {
	path string
}

// NewFile creates a file-backed catalog cache at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Get implements catalog.Cache.
func (f *File) Get(ctx context.Context) (catalog.Snapshot, bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return catalog.Snapshot{}, false, nil
	}
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("read catalog cache %s: %w", f.path, err)
	}

	var snap catalog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("decode catalog cache %s: %w", f.path, err)
	}
	return snap, true, nil
}

// Put implements catalog.Cache. The file is written to a temp path and
// renamed so readers never see a partial snapshot.
func (f *File) Put(ctx context.Context, snap catalog.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog cache %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("install catalog cache %s: %w", f.path, err)
	}
	return nil
}
