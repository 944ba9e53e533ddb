// Package interop maps CurseForge and GitHub records onto the Modrinth
// project and version shapes used everywhere else.
package interop

import (
	"strconv"
	"strings"

	"mod-updater/curseforge"
	"mod-updater/loader"
	"mod-updater/modrinth"
)

const curseforgeModURL = "https://www.curseforge.com/minecraft/mc-mods/"

// CurseforgeModToProject converts a CurseForge mod. Loaders and game versions
// are unknown at the mod level and left empty.
func CurseforgeModToProject(mod curseforge.Mod) modrinth.Project {
	categories := make([]string, 0, len(mod.Categories))
	for _, c := range mod.Categories {
		categories = append(categories, c.Slug)
	}
	versions := make([]string, 0, len(mod.LatestFiles))
	for _, f := range mod.LatestFiles {
		versions = append(versions, strconv.Itoa(f.ID))
	}
	gallery := make([]modrinth.Image, 0, len(mod.Screenshots))
	for _, s := range mod.Screenshots {
		gallery = append(gallery, modrinth.Image{URL: s.URL, Title: s.Title, Description: s.Description})
	}
	var icon string
	if mod.Logo != nil {
		icon = mod.Logo.URL
	}

	return modrinth.Project{
		ID:           strconv.Itoa(mod.ID),
		Slug:         mod.Slug,
		Title:        mod.Name,
		Description:  mod.Summary,
		Body:         mod.Summary,
		ProjectType:  modrinth.ProjectTypeMod,
		Categories:   categories,
		Loaders:      []string{},
		GameVersions: []string{},
		ClientSide:   "unsupported",
		ServerSide:   "unsupported",
		Downloads:    mod.DownloadCount,
		Published:    mod.DateCreated,
		Updated:      mod.DateModified,
		Approved:     mod.DateReleased,
		IconURL:      icon,
		Team:         "unknown",
		IssuesURL:    mod.Links.IssuesURL,
		SourceURL:    mod.Links.SourceURL,
		WikiURL:      mod.Links.WikiURL,
		Versions:     versions,
		Gallery:      gallery,
		ProjectURL:   curseforgeModURL + mod.Slug,
	}
}

// CurseforgeFilesToVersions converts files in order.
func CurseforgeFilesToVersions(files []curseforge.File) []modrinth.Version {
	versions := make([]modrinth.Version, 0, len(files))
	for _, f := range files {
		versions = append(versions, CurseforgeFileToVersion(f))
	}
	return versions
}

// CurseforgeFileToVersion converts one file into a version with a single
// primary file.
func CurseforgeFileToVersion(file curseforge.File) modrinth.Version {
	deps := make([]modrinth.Dependency, 0, len(file.Dependencies))
	for _, d := range file.Dependencies {
		deps = append(deps, modrinth.Dependency{
			ProjectID:      strconv.Itoa(d.ModID),
			DependencyType: CurseforgeDependencyType(d.RelationType),
		})
	}

	return modrinth.Version{
		ID:            strconv.Itoa(file.ID),
		ProjectID:     strconv.Itoa(file.ModID),
		AuthorID:      "unknown",
		Name:          file.DisplayName,
		VersionNumber: file.FileName,
		DatePublished: file.FileDate,
		Downloads:     file.DownloadCount,
		VersionType:   CurseforgeReleaseType(file.ReleaseType),
		Files: []modrinth.File{{
			URL:      file.DownloadURL,
			Filename: file.FileName,
			Primary:  true,
			Size:     file.FileLength,
			Hashes:   map[string]string{"sha1": curseforgeSHA1(file)},
		}},
		Loaders:      LoadersFromCurseforgeFile(file),
		GameVersions: file.GameVersions,
		Dependencies: deps,
	}
}

// curseforgeSHA1 is the file's SHA-1, or its fingerprint when CurseForge did
// not report one.
func curseforgeSHA1(file curseforge.File) string {
	for _, h := range file.Hashes {
		if h.Algo == curseforge.HashSHA1 && h.Value != "" {
			return h.Value
		}
	}
	return strconv.FormatUint(uint64(file.FileFingerprint), 10)
}

// CurseforgeReleaseType maps the release channel; unknown values are releases.
func CurseforgeReleaseType(t curseforge.FileReleaseType) string {
	switch t {
	case curseforge.ReleaseTypeBeta:
		return "beta"
	case curseforge.ReleaseTypeAlpha:
		return "alpha"
	default:
		return "release"
	}
}

// CurseforgeDependencyType maps a relation. Embedded, tool and include
// relations all collapse to optional.
func CurseforgeDependencyType(t curseforge.RelationType) string {
	switch t {
	case curseforge.RelationRequired:
		return modrinth.DependencyRequired
	case curseforge.RelationIncompatible:
		return modrinth.DependencyIncompatible
	default:
		return modrinth.DependencyOptional
	}
}

// LoadersFromCurseforgeFile guesses loaders from the file's game version
// labels. "NeoForge" also matches forge.
func LoadersFromCurseforgeFile(file curseforge.File) []string {
	loaders := []string{}
	for _, name := range []string{"forge", "fabric", "quilt"} {
		for _, v := range file.GameVersions {
			if strings.Contains(strings.ToLower(v), name) {
				loaders = append(loaders, name)
				break
			}
		}
	}
	return loaders
}

// CurseforgeLoaderToLoader maps CurseForge's loader enum. ok is false for
// loaders without a counterpart.
func CurseforgeLoaderToLoader(t curseforge.ModLoaderType) (loader.Loader, bool) {
	switch t {
	case curseforge.ModLoaderForge:
		return loader.Forge, true
	case curseforge.ModLoaderFabric:
		return loader.Fabric, true
	case curseforge.ModLoaderQuilt:
		return loader.Quilt, true
	case curseforge.ModLoaderNeoForge:
		return loader.NeoForge, true
	default:
		return "", false
	}
}
