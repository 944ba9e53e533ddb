package github

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mod-updater/apiclient"
	"mod-updater/loader"
	"mod-updater/modrinth"
)

const (
	APIName        = "github"
	DefaultBaseURL = "https://api.github.com"
)

var defaultModrinthPages = map[string]string{
	"litematica":   "bEpr0Arc",
	"malilib":      "GcWjdA9I",
	"minihud":      "UMxybHE8",
	"tweakeroo":    "t5wuYk45",
	"itemscroller": "JygyCSA4",
	"servux":       "zQhsx8KF",
}

// DefaultRepoConfigs are the sakura-ryoko Fabric ports.
func DefaultRepoConfigs() []RepoConfig {
	names := []string{"litematica", "malilib", "minihud", "tweakeroo", "itemscroller", "servux"}
	configs := make([]RepoConfig, 0, len(names))
	for _, name := range names {
		configs = append(configs, RepoConfig{
			Owner:        "sakura-ryoko",
			Repo:         name,
			Loader:       loader.Fabric,
			Pattern:      regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(name) + `.*?-.+?-.+?-sakura.\d+?.jar$`),
			ModrinthPage: defaultModrinthPages[name],
		})
	}
	return configs
}

// ProjectLookup resolves Modrinth projects for enrichment.
type ProjectLookup interface {
	GetProject(ctx context.Context, id string) (*modrinth.Project, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	UserAgent  string
	Configs    []RepoConfig
	Modrinth   ProjectLookup
	HTTPClient *http.Client
	Notifier   apiclient.Notifier
	Logger     *zap.SugaredLogger
	RetryDelay time.Duration
	MaxRetries int
}

// Client resolves known third-party jars through their GitHub releases.
type Client struct {
	*apiclient.Base

	configs  []RepoConfig
	modrinth ProjectLookup
	log      *zap.SugaredLogger

	mu       sync.Mutex
	enriched map[string]*Enrichment
}

// NewClient creates a GitHub client. Without Configs the default table is used.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Configs == nil {
		opts.Configs = DefaultRepoConfigs()
	}
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Client{
		Base: apiclient.NewBase(apiclient.Options{
			Name:        APIName,
			BaseURL:     opts.BaseURL,
			UserAgent:   opts.UserAgent,
			Headers:     headers,
			Fallback:    apiclient.FallbackLimit{Limit: 60, Window: time.Hour},
			HTTPClient:  opts.HTTPClient,
			Notifier:    opts.Notifier,
			Logger:      opts.Logger,
			RetryDelay:  opts.RetryDelay,
			MaxRetries:  opts.MaxRetries,
			RateLimited: exhausted,
		}),
		configs:  opts.Configs,
		modrinth: opts.Modrinth,
		log:      log,
		enriched: make(map[string]*Enrichment),
	}
}

// exhausted flags GitHub's 403 with a spent quota as a rate limit.
func exhausted(resp *http.Response) bool {
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// MatchConfig returns the first config for l whose pattern matches filename.
func (c *Client) MatchConfig(filename string, l loader.Loader) (RepoConfig, bool) {
	for _, cfg := range c.configs {
		if cfg.Loader == l && cfg.Pattern.MatchString(filename) {
			return cfg, true
		}
	}
	return RepoConfig{}, false
}

// GetReleases lists the releases of cfg's repository.
func (c *Client) GetReleases(ctx context.Context, cfg RepoConfig) ([]Release, error) {
	var releases []Release
	path := fmt.Sprintf("/repos/%s/%s/releases", cfg.Owner, cfg.Repo)
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// FindMatchingAsset returns the first jar asset matching pattern.
func FindMatchingAsset(release Release, pattern *regexp.Regexp) (Asset, bool) {
	for _, asset := range release.Assets {
		if strings.HasSuffix(asset.Name, ".jar") && pattern.MatchString(asset.Name) {
			return asset, true
		}
	}
	return Asset{}, false
}

// GetModInfoForFile resolves filename against the repo table. It returns nil
// with no error when nothing matches or no release qualifies.
func (c *Client) GetModInfoForFile(ctx context.Context, filename string, l loader.Loader, gameVersion string) (*ModInfo, error) {
	cfg, ok := c.MatchConfig(filename, l)
	if !ok {
		return nil, nil
	}

	releases, err := c.GetReleases(ctx, cfg)
	if err != nil {
		return nil, err
	}
	enrichment := c.enrich(ctx, cfg)

	var (
		versions  []VersionInfo
		tags      []string
		downloads int
		updated   time.Time
	)
	for _, release := range releases {
		if release.Draft || release.Prerelease || !strings.Contains(release.Name, gameVersion) {
			continue
		}
		asset, ok := FindMatchingAsset(release, cfg.Pattern)
		if !ok {
			continue
		}

		for _, a := range release.Assets {
			downloads += a.DownloadCount
		}
		if release.PublishedAt.After(updated) {
			updated = release.PublishedAt
		}
		tags = append(tags, release.TagName)

		name := release.Name
		if name == "" {
			name = release.TagName
		}
		versions = append(versions, VersionInfo{
			Name:          name,
			VersionNumber: release.TagName,
			Changelog:     release.Body,
			DatePublished: release.PublishedAt,
			Downloads:     asset.DownloadCount,
			Asset:         asset,
			ReleaseURL:    release.HTMLURL,
		})
	}
	if len(versions) == 0 {
		return nil, nil
	}

	project := ProjectInfo{
		ID:          cfg.ID(),
		Title:       cfg.Repo,
		Description: "Github Repository",
		ProjectURL:  "https://github.com/" + cfg.ID(),
		Downloads:   downloads,
		Updated:     updated,
		Versions:    tags,
		Loaders:     []string{cfg.Loader.String()},
	}
	if enrichment != nil {
		project.Title = enrichment.Title
		project.Description = enrichment.Description
		project.ClientSide = enrichment.ClientSide
		project.ServerSide = enrichment.ServerSide
		project.IconURL = enrichment.IconURL
	}

	return &ModInfo{Project: project, Versions: versions, Config: cfg}, nil
}

// enrich fetches the Modrinth page of cfg once. Later calls reuse the first
// result, including a failed one.
func (c *Client) enrich(ctx context.Context, cfg RepoConfig) *Enrichment {
	if cfg.ModrinthPage == "" || c.modrinth == nil {
		return nil
	}

	c.mu.Lock()
	if e, ok := c.enriched[cfg.ModrinthPage]; ok {
		c.mu.Unlock()
		return e
	}
	c.enriched[cfg.ModrinthPage] = nil
	c.mu.Unlock()

	project, err := c.modrinth.GetProject(ctx, cfg.ModrinthPage)
	if err != nil {
		c.log.Debugw("Modrinth enrichment failed", zap.String("repo", cfg.ID()), zap.Error(err))
		return nil
	}
	e := &Enrichment{
		Title:       project.Title,
		Description: project.Description,
		ClientSide:  project.ClientSide,
		ServerSide:  project.ServerSide,
		IconURL:     project.IconURL,
	}

	c.mu.Lock()
	c.enriched[cfg.ModrinthPage] = e
	c.mu.Unlock()
	return e
}
