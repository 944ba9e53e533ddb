package modrinth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// IndexFileName is the manifest inside a .mrpack archive.
const IndexFileName = "modrinth.index.json"

// Modpack is a parsed pack manifest.
type Modpack struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	VersionID     string            `json:"versionId"`
	Name          string            `json:"name"`
	Summary       string            `json:"summary"`
	Files         []PackFile        `json:"files"`
	Dependencies  map[string]string `json:"dependencies"`
}

// PackFile is one entry of a pack manifest.
type PackFile struct {
	Path      string            `json:"path"`
	Name      string            `json:"name,omitempty"`
	Hashes    map[string]string `json:"hashes"`
	Downloads []string          `json:"downloads"`
	FileSize  int64             `json:"fileSize"`
	Env       map[string]string `json:"env,omitempty"`
}

// DisplayName is the entry's name, falling back to the base of its path.
func (f PackFile) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	if base := path.Base(f.Path); base != "." && base != "/" {
		return base
	}
	return "Unknown mod"
}

// ParseIndex decodes a bare modrinth.index.json document.
func ParseIndex(data []byte) (*Modpack, error) {
	var pack Modpack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse modpack index: %w", err)
	}
	if pack.Files == nil {
		return nil, fmt.Errorf("modpack index has no files list")
	}
	return &pack, nil
}

// ParseMrpack reads the index out of a .mrpack zip archive.
func ParseMrpack(data []byte) (*Modpack, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open mrpack archive: %w", err)
	}
	for _, f := range reader.File {
		if f.Name != IndexFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", IndexFileName, err)
		}
		defer rc.Close()
		index, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", IndexFileName, err)
		}
		return ParseIndex(index)
	}
	return nil, fmt.Errorf("%s not found in the archive", IndexFileName)
}

// IsManifest reports whether a file name looks like a pack manifest.
func IsManifest(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".mrpack")
}

// ParseManifest dispatches on the file extension.
func ParseManifest(name string, data []byte) (*Modpack, error) {
	if strings.HasSuffix(strings.ToLower(name), ".mrpack") {
		return ParseMrpack(data)
	}
	return ParseIndex(data)
}
