package interop

import (
	"time"

	"mod-updater/github"
	"mod-updater/modrinth"
)

// InstalledPrefix marks the synthetic version that stands in for a jar
// resolved by filename.
const InstalledPrefix = "installed:"

// GitHubToProject converts a synthesized repository project.
func GitHubToProject(info *github.ModInfo) modrinth.Project {
	p := info.Project
	return modrinth.Project{
		ID:           p.ID,
		Slug:         info.Config.Repo,
		Title:        p.Title,
		Description:  p.Description,
		Body:         p.Description,
		ProjectType:  modrinth.ProjectTypeMod,
		Loaders:      p.Loaders,
		GameVersions: []string{},
		ClientSide:   orUnknown(p.ClientSide),
		ServerSide:   orUnknown(p.ServerSide),
		Downloads:    p.Downloads,
		Published:    p.Updated,
		Updated:      p.Updated,
		Approved:     p.Updated,
		IconURL:      p.IconURL,
		Team:         info.Config.Owner,
		SourceURL:    p.ProjectURL,
		IssuesURL:    p.ProjectURL + "/issues",
		Versions:     p.Versions,
		ProjectURL:   p.ProjectURL,
	}
}

// GitHubToVersions converts every qualifying release. The asset file name is
// the version id so the installed jar can be matched against it.
func GitHubToVersions(info *github.ModInfo, gameVersion string) []modrinth.Version {
	versions := make([]modrinth.Version, 0, len(info.Versions))
	for _, v := range info.Versions {
		versions = append(versions, modrinth.Version{
			ID:            v.Asset.Name,
			ProjectID:     info.Project.ID,
			AuthorID:      info.Config.Owner,
			Name:          v.Name,
			VersionNumber: v.VersionNumber,
			Changelog:     v.Changelog,
			DatePublished: v.DatePublished,
			Downloads:     v.Downloads,
			VersionType:   "release",
			Files: []modrinth.File{{
				URL:      v.Asset.BrowserDownloadURL,
				Filename: v.Asset.Name,
				Primary:  true,
				Size:     v.Asset.Size,
				Hashes:   map[string]string{},
			}},
			Loaders:      info.Project.Loaders,
			GameVersions: []string{gameVersion},
			Dependencies: []modrinth.Dependency{},
		})
	}
	return versions
}

// GitHubInstalledVersion is the reference for a jar matched by filename. It is
// epoch dated with no downloads; AlternateID carries the filename so the
// release shipping that jar classifies as installed.
func GitHubInstalledVersion(filename, projectID, gameVersion string) modrinth.Version {
	return modrinth.Version{
		ID:            InstalledPrefix + filename,
		ProjectID:     projectID,
		Name:          filename,
		VersionNumber: filename,
		DatePublished: time.Unix(0, 0).UTC(),
		VersionType:   "release",
		GameVersions:  []string{gameVersion},
		AlternateID:   filename,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
