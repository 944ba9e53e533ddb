package modrinth

import (
	"fmt"
	"time"
)

// Project types.
const (
	ProjectTypeMod          = "mod"
	ProjectTypeModpack      = "modpack"
	ProjectTypeResourcePack = "resourcepack"
	ProjectTypeShader       = "shader"
)

// Dependency types.
const (
	DependencyRequired     = "required"
	DependencyOptional     = "optional"
	DependencyIncompatible = "incompatible"
	DependencyEmbedded     = "embedded"
)

// Project is the canonical project record. Other registries are mapped onto
// this shape.
type Project struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Body         string    `json:"body"`
	ProjectType  string    `json:"project_type"`
	Categories   []string  `json:"categories"`
	Loaders      []string  `json:"loaders"`
	GameVersions []string  `json:"game_versions"`
	ClientSide   string    `json:"client_side"`
	ServerSide   string    `json:"server_side"`
	Downloads    int       `json:"downloads"`
	Followers    int       `json:"followers"`
	Published    time.Time `json:"published"`
	Updated      time.Time `json:"updated"`
	Approved     time.Time `json:"approved"`
	IconURL      string    `json:"icon_url"`
	Color        *int      `json:"color"`
	Team         string    `json:"team"`
	License      *License  `json:"license"`
	IssuesURL    string    `json:"issues_url"`
	SourceURL    string    `json:"source_url"`
	WikiURL      string    `json:"wiki_url"`
	Versions     []string  `json:"versions"`
	Gallery      []Image   `json:"gallery"`

	// ProjectURL overrides the derived web URL for projects mapped from
	// other registries.
	ProjectURL string `json:"-"`
}

// License of a project.
type License struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Image is a gallery entry.
type Image struct {
	URL         string    `json:"url"`
	Featured    bool      `json:"featured"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
}

// URL returns the project's web page.
func (p Project) URL() string {
	if p.ProjectURL != "" {
		return p.ProjectURL
	}
	projectType := p.ProjectType
	if projectType == "" {
		projectType = ProjectTypeMod
	}
	key := p.Slug
	if key == "" {
		key = p.ID
	}
	return fmt.Sprintf("https://modrinth.com/%s/%s", projectType, key)
}

// ColorValue is the project color or 0.
func (p Project) ColorValue() int {
	if p.Color == nil {
		return 0
	}
	return *p.Color
}

// Version is one downloadable release of a project.
type Version struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"project_id"`
	AuthorID      string       `json:"author_id"`
	Name          string       `json:"name"`
	VersionNumber string       `json:"version_number"`
	Changelog     string       `json:"changelog"`
	DatePublished time.Time    `json:"date_published"`
	Downloads     int          `json:"downloads"`
	VersionType   string       `json:"version_type"`
	Featured      bool         `json:"featured"`
	Files         []File       `json:"files"`
	Loaders       []string     `json:"loaders"`
	GameVersions  []string     `json:"game_versions"`
	Dependencies  []Dependency `json:"dependencies"`

	// AlternateID is a provider-specific identifier matched in addition to
	// ID when deciding whether a candidate is the installed version.
	AlternateID string `json:"-"`
	// PackDependencies holds pack-manifest style pins such as
	// {"minecraft": "1.20.1"}.
	PackDependencies map[string]string `json:"-"`
}

// PrimaryFile returns the flagged primary file, or the first file.
func (v Version) PrimaryFile() *File {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) > 0 {
		return &v.Files[0]
	}
	return nil
}

// RequiredDependencies returns the project ids this version requires.
func (v Version) RequiredDependencies() []string {
	var ids []string
	for _, d := range v.Dependencies {
		if d.DependencyType == DependencyRequired && d.ProjectID != "" {
			ids = append(ids, d.ProjectID)
		}
	}
	return ids
}

// Dependency links a version to another project or version.
type Dependency struct {
	VersionID      string `json:"version_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	DependencyType string `json:"dependency_type"`
}

// File is a downloadable artifact of a version.
type File struct {
	Hashes   map[string]string `json:"hashes"`
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	FileType string            `json:"file_type,omitempty"`
}

// versionFilesRequest is the body of POST /version_files.
type versionFilesRequest struct {
	Hashes    []string `json:"hashes"`
	Algorithm string   `json:"algorithm"`
}
