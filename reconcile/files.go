package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileHandle is one input: a mod jar, a resource pack or a pack manifest.
type FileHandle interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// LocalFile reads from disk.
type LocalFile struct {
	Path string
}

func (f LocalFile) Name() string { return filepath.Base(f.Path) }

func (f LocalFile) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Path)
}

// MemoryFile is an in-memory input.
type MemoryFile struct {
	FileName string
	Data     []byte
}

func (f MemoryFile) Name() string { return f.FileName }

func (f MemoryFile) Read(context.Context) ([]byte, error) { return f.Data, nil }

var inputExtensions = []string{".jar", ".zip", ".json", ".mrpack"}

// ScanDir lists the mod, pack and manifest files directly inside dir, sorted
// by name.
func ScanDir(dir string) ([]FileHandle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory '%s': %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range inputExtensions {
			if ext == allowed {
				names = append(names, entry.Name())
				break
			}
		}
	}
	sort.Strings(names)

	files := make([]FileHandle, 0, len(names))
	for _, name := range names {
		files = append(files, LocalFile{Path: filepath.Join(dir, name)})
	}
	return files, nil
}
