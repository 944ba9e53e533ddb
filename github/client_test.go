package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mod-updater/apiclient"
	"mod-updater/loader"
	"mod-updater/modrinth"
)

type fakeModrinth struct {
	calls atomic.Int32
	err   error
}

func (f *fakeModrinth) GetProject(_ context.Context, id string) (*modrinth.Project, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &modrinth.Project{ID: id, Title: "Litematica", Description: "Schematics", ClientSide: "required", ServerSide: "unsupported", IconURL: "https://cdn/icon.png"}, nil
}

func newTestClient(t *testing.T, handler http.Handler, lookup ProjectLookup) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Options{
		BaseURL:    srv.URL,
		Token:      "secret",
		Modrinth:   lookup,
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(c.Limiter.Stop)
	return c
}

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

var sampleReleases = []Release{
	{
		TagName: "v0.19.2", Name: "Litematica 1.21 0.19.2", PublishedAt: date("2024-08-01"),
		Assets: []Asset{
			{Name: "litematica-fabric-1.21-0.19.2-sakura.3.jar", DownloadCount: 10, BrowserDownloadURL: "https://gh/a.jar"},
			{Name: "litematica-fabric-1.21-0.19.2-sakura.3-sources.jar", DownloadCount: 1},
		},
	},
	{
		TagName: "v0.19.1", Name: "Litematica 1.21 0.19.1", PublishedAt: date("2024-07-01"),
		Assets: []Asset{{Name: "litematica-fabric-1.21-0.19.1-sakura.2.jar", DownloadCount: 5}},
	},
	{
		TagName: "v0.20.0-pre", Name: "Litematica 1.21 0.20.0", Prerelease: true, PublishedAt: date("2024-09-01"),
		Assets: []Asset{{Name: "litematica-fabric-1.21-0.20.0-sakura.1.jar"}},
	},
	{
		TagName: "v0.18.0", Name: "Litematica 1.20.4 0.18.0", PublishedAt: date("2024-03-01"),
		Assets: []Asset{{Name: "litematica-fabric-1.20.4-0.18.0-sakura.1.jar"}},
	},
	{
		TagName: "v0.19.0", Name: "Litematica 1.21 0.19.0", Draft: true,
		Assets: []Asset{{Name: "litematica-fabric-1.21-0.19.0-sakura.1.jar"}},
	},
}

func TestMatchConfig(t *testing.T) {
	c := NewClient(Options{})
	defer c.Limiter.Stop()

	tests := []struct {
		name     string
		filename string
		loader   loader.Loader
		want     string
		ok       bool
	}{
		{"litematica fabric", "litematica-fabric-1.21-0.19.2-sakura.3.jar", loader.Fabric, "sakura-ryoko/litematica", true},
		{"case insensitive", "MaLiLib-fabric-1.21-0.21.0-sakura.1.jar", loader.Fabric, "sakura-ryoko/malilib", true},
		{"wrong loader", "litematica-fabric-1.21-0.19.2-sakura.3.jar", loader.Forge, "", false},
		{"upstream build", "litematica-fabric-1.21-0.19.2.jar", loader.Fabric, "", false},
		{"unknown mod", "sodium-fabric-0.5.jar", loader.Fabric, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ok := c.MatchConfig(tt.filename, tt.loader)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, cfg.ID())
			}
		})
	}
}

func TestFindMatchingAsset(t *testing.T) {
	cfg := DefaultRepoConfigs()[0]
	asset, ok := FindMatchingAsset(sampleReleases[0], cfg.Pattern)
	require.True(t, ok)
	assert.Equal(t, "litematica-fabric-1.21-0.19.2-sakura.3.jar", asset.Name)

	_, ok = FindMatchingAsset(Release{Assets: []Asset{{Name: "litematica-fabric-1.21-0.19.2-sakura.3.zip"}}}, cfg.Pattern)
	assert.False(t, ok)
}

func TestGetModInfoForFile(t *testing.T) {
	lookup := &fakeModrinth{}
	var gets atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/sakura-ryoko/litematica/releases", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		gets.Add(1)
		_ = json.NewEncoder(w).Encode(sampleReleases)
	}), lookup)

	info, err := c.GetModInfoForFile(context.Background(), "litematica-fabric-1.21-0.19.1-sakura.2.jar", loader.Fabric, "1.21")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "sakura-ryoko/litematica", info.Project.ID)
	assert.Equal(t, "https://github.com/sakura-ryoko/litematica", info.Project.ProjectURL)
	assert.Equal(t, "Litematica", info.Project.Title)
	assert.Equal(t, "required", info.Project.ClientSide)
	assert.Equal(t, 16, info.Project.Downloads)
	assert.Equal(t, date("2024-08-01"), info.Project.Updated)
	assert.Equal(t, []string{"v0.19.2", "v0.19.1"}, info.Project.Versions)
	assert.Equal(t, []string{"fabric"}, info.Project.Loaders)

	require.Len(t, info.Versions, 2)
	assert.Equal(t, "litematica-fabric-1.21-0.19.2-sakura.3.jar", info.Versions[0].Asset.Name)
	assert.Equal(t, 10, info.Versions[0].Downloads)

	_, err = c.GetModInfoForFile(context.Background(), "litematica-fabric-1.21-0.19.1-sakura.2.jar", loader.Fabric, "1.21")
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookup.calls.Load(), "enrichment runs once per page")
	assert.Equal(t, int32(2), gets.Load())
}

func TestGetModInfoForFileNoMatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}), nil)

	info, err := c.GetModInfoForFile(context.Background(), "sodium.jar", loader.Fabric, "1.21")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetModInfoForFileNoQualifyingRelease(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sampleReleases)
	}), &fakeModrinth{err: apiclient.NotFound("modrinth", "gone")})

	info, err := c.GetModInfoForFile(context.Background(), "litematica-fabric-1.21-0.19.1-sakura.2.jar", loader.Fabric, "1.19.4")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetModInfoForFileWithoutEnrichment(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sampleReleases)
	}), &fakeModrinth{err: apiclient.NotFound("modrinth", "gone")})

	info, err := c.GetModInfoForFile(context.Background(), "litematica-fabric-1.21-0.19.1-sakura.2.jar", loader.Fabric, "1.21")
	require.NoError(t, err)
	assert.Equal(t, "litematica", info.Project.Title)
	assert.Equal(t, "Github Repository", info.Project.Description)
}

func TestRateLimitOn403(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "120")
		w.WriteHeader(http.StatusForbidden)
	}), nil)

	_, err := c.GetModInfoForFile(context.Background(), "litematica-fabric-1.21-0.19.1-sakura.2.jar", loader.Fabric, "1.21")
	require.Error(t, err)
	assert.True(t, apiclient.IsRateLimitError(err))

	info := c.Limiter.Info()
	require.NotNil(t, info)
	assert.False(t, info.Estimated)
	assert.Equal(t, 0, info.Remaining)
}
