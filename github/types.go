package github

import (
	"regexp"
	"time"

	"mod-updater/loader"
)

// RepoConfig maps a family of jar filenames to a GitHub repository that
// publishes them as release assets.
type RepoConfig struct {
	Owner   string
	Repo    string
	Loader  loader.Loader
	Pattern *regexp.Regexp
	// ModrinthPage is the Modrinth project id used to enrich the synthesized
	// project with a title, description and icon.
	ModrinthPage string
}

// ID is the synthetic project id "owner/repo".
func (c RepoConfig) ID() string {
	return c.Owner + "/" + c.Repo
}

// Release is a GitHub release as returned by the releases endpoint.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
	HTMLURL     string    `json:"html_url"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Label              string    `json:"label"`
	ContentType        string    `json:"content_type"`
	Size               int64     `json:"size"`
	DownloadCount      int       `json:"download_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	BrowserDownloadURL string    `json:"browser_download_url"`
}

// ProjectInfo is the project synthesized from a repository's qualifying
// releases.
type ProjectInfo struct {
	ID          string
	Title       string
	Description string
	ProjectURL  string
	IconURL     string
	ClientSide  string
	ServerSide  string
	Downloads   int
	Updated     time.Time
	Versions    []string
	Loaders     []string
}

// VersionInfo is one qualifying release with its matching asset.
type VersionInfo struct {
	Name          string
	VersionNumber string
	Changelog     string
	DatePublished time.Time
	Downloads     int
	Asset         Asset
	ReleaseURL    string
}

// ModInfo is everything resolved for one filename.
type ModInfo struct {
	Project  ProjectInfo
	Versions []VersionInfo
	Config   RepoConfig
}

// Enrichment is the Modrinth metadata copied onto a repository's project.
type Enrichment struct {
	Title       string
	Description string
	ClientSide  string
	ServerSide  string
	IconURL     string
}
