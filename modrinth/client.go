package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"mod-updater/apiclient"
)

const (
	APIName        = "modrinth"
	DefaultBaseURL = "https://api.modrinth.com/v2"

	defaultBatchWindow = time.Second
	// Upper bound on ids per bulk request so the query string stays sane.
	maxBatch = 100
)

var (
	projectCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mod_updater_modrinth_project_cache_hits_total",
		Help: "Project lookups served from the in-memory cache.",
	})
	projectCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mod_updater_modrinth_project_cache_misses_total",
		Help: "Project lookups that went to the API.",
	})
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	UserAgent  string
	APIKey     string
	HTTPClient *http.Client
	Notifier   apiclient.Notifier
	Logger     *zap.SugaredLogger
	RetryDelay time.Duration
	MaxRetries int
	// BatchWindow is how long single lookups are buffered before the bulk
	// call goes out.
	BatchWindow time.Duration
	// CacheTTL bounds how long resolved projects are reused; 0 means an hour.
	CacheTTL time.Duration
}

// Client talks to the Modrinth v2 API. Single project and hash lookups are
// batched into bulk calls.
type Client struct {
	*apiclient.Base

	projects *apiclient.Batcher[string, Project]
	versions *apiclient.Batcher[string, Version]
	cache    *expirable.LRU[string, Project]
	log      *zap.SugaredLogger
}

// NewClient creates a Modrinth client.
func NewClient(opts Options) (*Client, error) {
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	headers := map[string]string{}
	if opts.APIKey != "" {
		headers["Authorization"] = opts.APIKey
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	base := apiclient.NewBase(apiclient.Options{
		Name:       APIName,
		BaseURL:    opts.BaseURL,
		UserAgent:  opts.UserAgent,
		Headers:    headers,
		Fallback:   apiclient.FallbackLimit{Limit: 300, Window: time.Minute},
		HTTPClient: opts.HTTPClient,
		Notifier:   opts.Notifier,
		Logger:     opts.Logger,
		RetryDelay: opts.RetryDelay,
		MaxRetries: opts.MaxRetries,
	})

	c := &Client{
		Base:  base,
		cache: expirable.NewLRU[string, Project](1024, nil, ttl),
		log:   opts.Logger,
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	window := opts.BatchWindow
	if window <= 0 {
		window = defaultBatchWindow
	}
	c.projects = apiclient.NewBatcher(APIName, window, maxBatch, c.bulkProjects)
	c.versions = apiclient.NewBatcher(APIName, window, maxBatch, c.bulkVersionsByHash)
	return c, nil
}

// GetProjects fetches many projects in one request.
func (c *Client) GetProjects(ctx context.Context, ids []string) ([]Project, error) {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project ids: %w", err)
	}
	params := url.Values{}
	params.Set("ids", string(encoded))

	var projects []Project
	if err := c.Do(ctx, http.MethodGet, "/projects", params, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) bulkProjects(ctx context.Context, ids []string) (map[string]Project, error) {
	projects, err := c.GetProjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Project, len(projects))
	for _, p := range projects {
		out[p.ID] = p
		// Callers may ask by slug.
		if p.Slug != "" {
			out[p.Slug] = p
		}
	}
	return out, nil
}

// GetProject retrieves a project by id or slug through the batcher.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	if p, ok := c.cache.Get(id); ok {
		projectCacheHits.Inc()
		return &p, nil
	}
	projectCacheMisses.Inc()

	p, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, p)
	if p.ID != id {
		c.cache.Add(p.ID, p)
	}
	return &p, nil
}

// GetVersionsFromHashes resolves SHA-1 hashes to the versions containing them.
func (c *Client) GetVersionsFromHashes(ctx context.Context, hashes []string) (map[string]Version, error) {
	body := versionFilesRequest{Hashes: hashes, Algorithm: "sha1"}
	out := map[string]Version{}
	if err := c.Do(ctx, http.MethodPost, "/version_files", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) bulkVersionsByHash(ctx context.Context, hashes []string) (map[string]Version, error) {
	return c.GetVersionsFromHashes(ctx, hashes)
}

// GetVersionByHash resolves one SHA-1 hash through the batcher.
func (c *Client) GetVersionByHash(ctx context.Context, hash string) (*Version, error) {
	v, err := c.versions.Get(ctx, strings.ToLower(hash))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetProjectVersions lists versions of a project for one game version. An
// empty loaders slice skips loader filtering.
func (c *Client) GetProjectVersions(ctx context.Context, id, gameVersion string, loaders []string) ([]Version, error) {
	params := url.Values{}
	if gameVersion != "" {
		encoded, _ := json.Marshal([]string{gameVersion})
		params.Set("game_versions", string(encoded))
	}
	if len(loaders) > 0 {
		lowered := make([]string, len(loaders))
		for i, l := range loaders {
			lowered[i] = strings.ToLower(l)
		}
		encoded, _ := json.Marshal(lowered)
		params.Set("loaders", string(encoded))
	}

	var versions []Version
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/project/%s/version", url.PathEscape(id)), params, nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// DownloadFile saves the file at downloadURL to destinationPath.
func (c *Client) DownloadFile(ctx context.Context, destinationPath, downloadURL string) error {
	dir := filepath.Dir(destinationPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory '%s': %w", dir, err)
	}

	resp, err := c.Open(ctx, downloadURL)
	if err != nil {
		return fmt.Errorf("failed to start download for '%s' from %s: %w", filepath.Base(destinationPath), downloadURL, err)
	}
	defer resp.Body.Close()

	outFile, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", destinationPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		os.Remove(destinationPath)
		return fmt.Errorf("failed to write downloaded content to '%s': %w", destinationPath, err)
	}
	c.log.Infow("Downloaded file", zap.String("path", destinationPath))
	return nil
}
