package interop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mod-updater/curseforge"
	"mod-updater/github"
	"mod-updater/loader"
	"mod-updater/modrinth"
)

func TestCurseforgeModToProject(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mod := curseforge.Mod{
		ID:            238222,
		Slug:          "jei",
		Name:          "Just Enough Items",
		Summary:       "View items and recipes",
		DownloadCount: 1000,
		Categories:    []curseforge.Category{{Slug: "utility"}},
		Links:         curseforge.Links{IssuesURL: "https://issues", SourceURL: "https://src"},
		Logo:          &curseforge.Asset{URL: "https://logo.png"},
		Screenshots:   []curseforge.Asset{{URL: "https://shot.png", Title: "Shot"}},
		LatestFiles:   []curseforge.File{{ID: 1}, {ID: 2}},
		DateCreated:   created,
	}

	p := CurseforgeModToProject(mod)
	assert.Equal(t, "238222", p.ID)
	assert.Equal(t, "Just Enough Items", p.Title)
	assert.Equal(t, modrinth.ProjectTypeMod, p.ProjectType)
	assert.Equal(t, "unknown", p.Team)
	assert.Nil(t, p.License)
	assert.Nil(t, p.Color)
	assert.Empty(t, p.Loaders)
	assert.Empty(t, p.GameVersions)
	assert.Equal(t, []string{"utility"}, p.Categories)
	assert.Equal(t, []string{"1", "2"}, p.Versions)
	assert.Equal(t, "https://logo.png", p.IconURL)
	assert.Equal(t, created, p.Published)
	assert.Equal(t, "https://www.curseforge.com/minecraft/mc-mods/jei", p.URL())
	require.Len(t, p.Gallery, 1)
	assert.Equal(t, "https://shot.png", p.Gallery[0].URL)
}

func TestCurseforgeModToProjectWithoutLogo(t *testing.T) {
	p := CurseforgeModToProject(curseforge.Mod{ID: 1, Slug: "x"})
	assert.Empty(t, p.IconURL)
	assert.Empty(t, p.Versions)
}

func TestCurseforgeFileToVersion(t *testing.T) {
	file := curseforge.File{
		ID:              4000,
		ModID:           238222,
		DisplayName:     "JEI 15.2",
		FileName:        "jei-1.20.1-forge-15.2.jar",
		ReleaseType:     curseforge.ReleaseTypeBeta,
		FileLength:      2048,
		DownloadCount:   7,
		DownloadURL:     "https://edge/jei.jar",
		GameVersions:    []string{"1.20.1", "Forge", "NeoForge"},
		FileFingerprint: 123456,
		Hashes:          []curseforge.FileHash{{Value: "md5", Algo: curseforge.HashMD5}, {Value: "abc123", Algo: curseforge.HashSHA1}},
		Dependencies: []curseforge.FileDependency{
			{ModID: 1, RelationType: curseforge.RelationRequired},
			{ModID: 2, RelationType: curseforge.RelationEmbeddedLibrary},
			{ModID: 3, RelationType: curseforge.RelationIncompatible},
		},
	}

	v := CurseforgeFileToVersion(file)
	assert.Equal(t, "4000", v.ID)
	assert.Equal(t, "238222", v.ProjectID)
	assert.Equal(t, "JEI 15.2", v.Name)
	assert.Equal(t, "jei-1.20.1-forge-15.2.jar", v.VersionNumber)
	assert.Equal(t, "beta", v.VersionType)
	assert.Equal(t, []string{"forge"}, v.Loaders)

	f := v.PrimaryFile()
	require.NotNil(t, f)
	assert.True(t, f.Primary)
	assert.Equal(t, "abc123", f.Hashes["sha1"])
	assert.Equal(t, int64(2048), f.Size)

	require.Len(t, v.Dependencies, 3)
	assert.Equal(t, modrinth.DependencyRequired, v.Dependencies[0].DependencyType)
	assert.Equal(t, modrinth.DependencyOptional, v.Dependencies[1].DependencyType)
	assert.Equal(t, modrinth.DependencyIncompatible, v.Dependencies[2].DependencyType)
	assert.Equal(t, []string{"1"}, v.RequiredDependencies())
}

func TestCurseforgeFileWithoutSHA1UsesFingerprint(t *testing.T) {
	v := CurseforgeFileToVersion(curseforge.File{ID: 1, FileFingerprint: 42})
	assert.Equal(t, "42", v.Files[0].Hashes["sha1"])
	assert.Equal(t, "release", v.VersionType)
}

func TestLoadersFromCurseforgeFile(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     []string
	}{
		{"fabric and quilt", []string{"1.20.1", "Fabric", "Quilt"}, []string{"fabric", "quilt"}},
		{"neoforge reads as forge", []string{"NeoForge"}, []string{"forge"}},
		{"none", []string{"1.20.1"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LoadersFromCurseforgeFile(curseforge.File{GameVersions: tt.versions}))
		})
	}
}

func TestCurseforgeLoaderToLoader(t *testing.T) {
	l, ok := CurseforgeLoaderToLoader(curseforge.ModLoaderNeoForge)
	assert.True(t, ok)
	assert.Equal(t, loader.NeoForge, l)

	_, ok = CurseforgeLoaderToLoader(curseforge.ModLoaderCauldron)
	assert.False(t, ok)
}

func TestCurseforgeReleaseType(t *testing.T) {
	assert.Equal(t, "release", CurseforgeReleaseType(curseforge.ReleaseTypeRelease))
	assert.Equal(t, "alpha", CurseforgeReleaseType(curseforge.ReleaseTypeAlpha))
	assert.Equal(t, "release", CurseforgeReleaseType(9))
}

func sampleModInfo() *github.ModInfo {
	cfg := github.DefaultRepoConfigs()[0]
	return &github.ModInfo{
		Config: cfg,
		Project: github.ProjectInfo{
			ID:         cfg.ID(),
			Title:      "Litematica",
			ProjectURL: "https://github.com/" + cfg.ID(),
			Downloads:  15,
			Loaders:    []string{"fabric"},
		},
		Versions: []github.VersionInfo{
			{Name: "0.19.2", VersionNumber: "v0.19.2", Downloads: 10, Asset: github.Asset{Name: "litematica-fabric-1.21-0.19.2-sakura.3.jar", BrowserDownloadURL: "https://gh/2.jar"}},
			{Name: "0.19.1", VersionNumber: "v0.19.1", Downloads: 5, Asset: github.Asset{Name: "litematica-fabric-1.21-0.19.1-sakura.2.jar"}},
		},
	}
}

func TestGitHubToProject(t *testing.T) {
	p := GitHubToProject(sampleModInfo())
	assert.Equal(t, "sakura-ryoko/litematica", p.ID)
	assert.Equal(t, "litematica", p.Slug)
	assert.Equal(t, "https://github.com/sakura-ryoko/litematica", p.URL())
	assert.Equal(t, "unknown", p.ClientSide)
	assert.Equal(t, []string{"fabric"}, p.Loaders)
}

func TestGitHubToVersions(t *testing.T) {
	versions := GitHubToVersions(sampleModInfo(), "1.21")
	require.Len(t, versions, 2)
	assert.Equal(t, "litematica-fabric-1.21-0.19.2-sakura.3.jar", versions[0].ID)
	assert.Equal(t, "sakura-ryoko/litematica", versions[0].ProjectID)
	assert.Equal(t, []string{"1.21"}, versions[0].GameVersions)
	assert.Equal(t, []string{"fabric"}, versions[0].Loaders)
	assert.Equal(t, "https://gh/2.jar", versions[0].PrimaryFile().URL)
}

func TestGitHubInstalledVersion(t *testing.T) {
	v := GitHubInstalledVersion("litematica-fabric-1.21-0.19.1-sakura.2.jar", "sakura-ryoko/litematica", "1.21")
	assert.Equal(t, "installed:litematica-fabric-1.21-0.19.1-sakura.2.jar", v.ID)
	assert.Equal(t, "litematica-fabric-1.21-0.19.1-sakura.2.jar", v.AlternateID)
	assert.Equal(t, int64(0), v.DatePublished.Unix())
	assert.Zero(t, v.Downloads)
	assert.Equal(t, []string{"1.21"}, v.GameVersions)
}
