package curseforge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mod-updater/apiclient"
	"mod-updater/fingerprint"
)

const (
	APIName        = "curseforge"
	DefaultBaseURL = "https://api.curseforge.com/v1/"

	defaultBatchWindow = 2 * time.Second
	maxBatch           = 100
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
	Notifier   apiclient.Notifier
	Logger     *zap.SugaredLogger
	RetryDelay time.Duration
	MaxRetries int
	// BatchWindow is how long single lookups are buffered before the bulk
	// call goes out.
	BatchWindow time.Duration
}

// Client talks to the CurseForge core API. Mod, file and fingerprint lookups
// are batched.
type Client struct {
	*apiclient.Base

	mods         *apiclient.Batcher[int, Mod]
	files        *apiclient.Batcher[int, File]
	fingerprints *apiclient.Batcher[uint32, File]
}

// NewClient creates a CurseForge client. The API key is mandatory.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("CURSEFORGE_API_KEY is not configured")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	c := &Client{
		Base: apiclient.NewBase(apiclient.Options{
			Name:       APIName,
			BaseURL:    opts.BaseURL,
			UserAgent:  opts.UserAgent,
			Headers:    map[string]string{"x-api-key": opts.APIKey},
			HTTPClient: opts.HTTPClient,
			Notifier:   opts.Notifier,
			Logger:     opts.Logger,
			RetryDelay: opts.RetryDelay,
			MaxRetries: opts.MaxRetries,

			DefaultRetryAfter: 30 * time.Second,
		}),
	}
	window := opts.BatchWindow
	if window <= 0 {
		window = defaultBatchWindow
	}
	c.mods = apiclient.NewBatcher(APIName, window, maxBatch, c.bulkMods)
	c.files = apiclient.NewBatcher(APIName, window, maxBatch, c.bulkFiles)
	c.fingerprints = apiclient.NewBatcher(APIName, window, maxBatch, c.bulkFingerprints)
	return c, nil
}

// GetMods fetches many mods in one request.
func (c *Client) GetMods(ctx context.Context, ids []int) ([]Mod, error) {
	var resp response[[]Mod]
	body := map[string][]int{"modIds": ids}
	if err := c.Do(ctx, http.MethodPost, "mods", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) bulkMods(ctx context.Context, ids []int) (map[int]Mod, error) {
	mods, err := c.GetMods(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Mod, len(mods))
	for _, m := range mods {
		out[m.ID] = m
	}
	return out, nil
}

// GetMod resolves one mod through the batcher.
func (c *Client) GetMod(ctx context.Context, id int) (*Mod, error) {
	m, err := c.mods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetFiles fetches many files in one request.
func (c *Client) GetFiles(ctx context.Context, ids []int) ([]File, error) {
	var resp response[[]File]
	body := map[string][]int{"fileIds": ids}
	if err := c.Do(ctx, http.MethodPost, "mods/files", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) bulkFiles(ctx context.Context, ids []int) (map[int]File, error) {
	files, err := c.GetFiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]File, len(files))
	for _, f := range files {
		out[f.ID] = f
	}
	return out, nil
}

// GetFile resolves one file id through the batcher.
func (c *Client) GetFile(ctx context.Context, id int) (*File, error) {
	f, err := c.files.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFilesByFingerprints matches fingerprints exactly.
func (c *Client) GetFilesByFingerprints(ctx context.Context, fingerprints []uint32) (map[uint32]File, error) {
	var resp response[fingerprintsResult]
	body := map[string][]uint32{"fingerprints": fingerprints}
	if err := c.Do(ctx, http.MethodPost, "fingerprints", nil, body, &resp); err != nil {
		return nil, err
	}
	out := make(map[uint32]File, len(resp.Data.ExactMatches))
	for _, match := range resp.Data.ExactMatches {
		out[match.File.FileFingerprint] = match.File
	}
	return out, nil
}

// GetFileByFingerprint resolves one fingerprint through the batcher.
func (c *Client) GetFileByFingerprint(ctx context.Context, fp uint32) (*File, error) {
	f, err := c.fingerprints.Get(ctx, fp)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFileFromBytes fingerprints data and looks it up.
func (c *Client) GetFileFromBytes(ctx context.Context, data []byte) (*File, error) {
	return c.GetFileByFingerprint(ctx, fingerprint.Murmur2(data))
}

// GetModFileChangelog returns the changelog HTML of one file.
func (c *Client) GetModFileChangelog(ctx context.Context, modID, fileID int) (string, error) {
	var resp response[string]
	path := "mods/" + strconv.Itoa(modID) + "/files/" + strconv.Itoa(fileID) + "/changelog"
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data, nil
}

func (c *Client) bulkFingerprints(ctx context.Context, fps []uint32) (map[uint32]File, error) {
	return c.GetFilesByFingerprints(ctx, fps)
}
