// Package mojang lists Minecraft game versions from the launcher manifest.
package mojang

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"mod-updater/apiclient"
	"mod-updater/logger"
)

const (
	APIName            = "mojang"
	DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"
	// DefaultGameVersion is used when nothing is configured and the manifest
	// cannot be fetched.
	DefaultGameVersion = "1.20.1"

	TypeRelease  = "release"
	TypeSnapshot = "snapshot"
)

// Manifest is the launcher's version list.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []Version `json:"versions"`
}

// Version is one game version, newest first in the manifest.
type Version struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Time        time.Time `json:"time"`
	ReleaseTime time.Time `json:"releaseTime"`
}

// Options configures a Client.
type Options struct {
	ManifestURL string
	UserAgent   string
	HTTPClient  *http.Client
	Logger      *zap.SugaredLogger
	RetryDelay  time.Duration
}

// Client fetches the manifest once per process.
type Client struct {
	*apiclient.Base

	manifestURL string
	log         *zap.SugaredLogger

	mu       sync.Mutex
	manifest *Manifest
}

// NewClient creates a Mojang manifest client.
func NewClient(opts Options) *Client {
	manifestURL := opts.ManifestURL
	if manifestURL == "" {
		manifestURL = DefaultManifestURL
	}
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	return &Client{
		Base: apiclient.NewBase(apiclient.Options{
			Name:       APIName,
			UserAgent:  opts.UserAgent,
			Fallback:   apiclient.FallbackLimit{Limit: 60, Window: time.Minute},
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
			RetryDelay: opts.RetryDelay,
		}),
		manifestURL: manifestURL,
		log:         log,
	}
}

// GetManifest returns the version manifest, fetching it on first use.
func (c *Client) GetManifest(ctx context.Context) (*Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.manifest != nil {
		return c.manifest, nil
	}

	var m Manifest
	if err := c.Do(ctx, http.MethodGet, c.manifestURL, nil, nil, &m); err != nil {
		return nil, err
	}
	c.manifest = &m
	return c.manifest, nil
}

// Versions lists game versions newest first. With releasesOnly set
// snapshots and old betas are left out.
func (c *Client) Versions(ctx context.Context, releasesOnly bool) ([]Version, error) {
	m, err := c.GetManifest(ctx)
	if err != nil {
		return nil, err
	}
	if !releasesOnly {
		return m.Versions, nil
	}
	var out []Version
	for _, v := range m.Versions {
		if v.Type == TypeRelease {
			out = append(out, v)
		}
	}
	return out, nil
}

// LatestRelease is the newest release id.
func (c *Client) LatestRelease(ctx context.Context) (string, error) {
	m, err := c.GetManifest(ctx)
	if err != nil {
		return "", err
	}
	if m.Latest.Release == "" {
		return "", apiclient.Malformed(APIName, "manifest has no latest release")
	}
	return m.Latest.Release, nil
}

// Resolve picks the game version to use: preferred when set, otherwise the
// latest release, otherwise DefaultGameVersion.
func (c *Client) Resolve(ctx context.Context, preferred string) string {
	if preferred != "" {
		return preferred
	}
	latest, err := c.LatestRelease(ctx)
	if err != nil {
		c.log.Warnw("Could not determine latest game version", zap.Error(err), zap.String("default", DefaultGameVersion))
		return DefaultGameVersion
	}
	return latest
}

// Known reports whether id is listed in the manifest.
func (c *Client) Known(ctx context.Context, id string) (bool, error) {
	m, err := c.GetManifest(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range m.Versions {
		if v.ID == id {
			return true, nil
		}
	}
	return false, nil
}
