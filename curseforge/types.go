package curseforge

import "time"

// ModLoaderType is CurseForge's loader enum.
type ModLoaderType int

const (
	ModLoaderAny        ModLoaderType = 0
	ModLoaderForge      ModLoaderType = 1
	ModLoaderCauldron   ModLoaderType = 2
	ModLoaderLiteLoader ModLoaderType = 3
	ModLoaderFabric     ModLoaderType = 4
	ModLoaderQuilt      ModLoaderType = 5
	ModLoaderNeoForge   ModLoaderType = 6
)

// FileReleaseType is CurseForge's release channel enum.
type FileReleaseType int

const (
	ReleaseTypeRelease FileReleaseType = 1
	ReleaseTypeBeta    FileReleaseType = 2
	ReleaseTypeAlpha   FileReleaseType = 3
)

// RelationType is CurseForge's dependency relation enum.
type RelationType int

const (
	RelationEmbeddedLibrary RelationType = 1
	RelationOptional        RelationType = 2
	RelationRequired        RelationType = 3
	RelationTool            RelationType = 4
	RelationIncompatible    RelationType = 5
	RelationInclude         RelationType = 6
)

// HashAlgo identifies FileHash.Value.
type HashAlgo int

const (
	HashSHA1 HashAlgo = 1
	HashMD5  HashAlgo = 2
)

type response[T any] struct {
	Data T `json:"data"`
}

// Mod is a CurseForge project.
type Mod struct {
	ID                 int         `json:"id"`
	GameID             int         `json:"gameId"`
	Name               string      `json:"name"`
	Slug               string      `json:"slug"`
	Links              Links       `json:"links"`
	Summary            string      `json:"summary"`
	Status             int         `json:"status"`
	DownloadCount      int         `json:"downloadCount"`
	IsFeatured         bool        `json:"isFeatured"`
	PrimaryCategoryID  int         `json:"primaryCategoryId"`
	Categories         []Category  `json:"categories"`
	ClassID            int         `json:"classId"`
	Authors            []Author    `json:"authors"`
	Logo               *Asset      `json:"logo"`
	Screenshots        []Asset     `json:"screenshots"`
	MainFileID         int         `json:"mainFileId"`
	LatestFiles        []File      `json:"latestFiles"`
	LatestFilesIndexes []FileIndex `json:"latestFilesIndexes"`
	DateCreated        time.Time   `json:"dateCreated"`
	DateModified       time.Time   `json:"dateModified"`
	DateReleased       time.Time   `json:"dateReleased"`
	IsAvailable        bool        `json:"isAvailable"`
	ThumbsUpCount      int         `json:"thumbsUpCount"`
}

// Links are a mod's external pages.
type Links struct {
	WebsiteURL string `json:"websiteUrl"`
	WikiURL    string `json:"wikiUrl"`
	IssuesURL  string `json:"issuesUrl"`
	SourceURL  string `json:"sourceUrl"`
}

// Category is a mod category.
type Category struct {
	ID      int    `json:"id"`
	GameID  int    `json:"gameId"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	URL     string `json:"url"`
	IconURL string `json:"iconUrl"`
}

// Author of a mod.
type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Asset is a logo or screenshot.
type Asset struct {
	ID           int    `json:"id"`
	ModID        int    `json:"modId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	URL          string `json:"url"`
}

// FileIndex summarizes one of a mod's latest files per game version.
type FileIndex struct {
	GameVersion       string          `json:"gameVersion"`
	FileID            int             `json:"fileId"`
	Filename          string          `json:"filename"`
	ReleaseType       FileReleaseType `json:"releaseType"`
	GameVersionTypeID int             `json:"gameVersionTypeId"`
	ModLoader         *ModLoaderType  `json:"modLoader"`
}

// File is a CurseForge mod file.
type File struct {
	ID              int              `json:"id"`
	GameID          int              `json:"gameId"`
	ModID           int              `json:"modId"`
	IsAvailable     bool             `json:"isAvailable"`
	DisplayName     string           `json:"displayName"`
	FileName        string           `json:"fileName"`
	ReleaseType     FileReleaseType  `json:"releaseType"`
	FileStatus      int              `json:"fileStatus"`
	Hashes          []FileHash       `json:"hashes"`
	FileDate        time.Time        `json:"fileDate"`
	FileLength      int64            `json:"fileLength"`
	DownloadCount   int              `json:"downloadCount"`
	DownloadURL     string           `json:"downloadUrl"`
	GameVersions    []string         `json:"gameVersions"`
	Dependencies    []FileDependency `json:"dependencies"`
	FileFingerprint uint32           `json:"fileFingerprint"`
	Modules         []FileModule     `json:"modules"`
}

// FileHash is one digest of a file.
type FileHash struct {
	Value string   `json:"value"`
	Algo  HashAlgo `json:"algo"`
}

// FileDependency links a file to another mod.
type FileDependency struct {
	ModID        int          `json:"modId"`
	RelationType RelationType `json:"relationType"`
}

// FileModule is a fingerprinted entry inside a file.
type FileModule struct {
	Name        string `json:"name"`
	Fingerprint uint32 `json:"fingerprint"`
}

type fingerprintMatch struct {
	ID   int  `json:"id"`
	File File `json:"file"`
}

type fingerprintsResult struct {
	IsCacheBuilt bool               `json:"isCacheBuilt"`
	ExactMatches []fingerprintMatch `json:"exactMatches"`
}
