// Package download fetches selected mod files, either one by one or bundled
// into a single zip archive.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mod-updater/logger"
)

// DirectLimit is the largest batch opened file by file; more are archived.
const DirectLimit = 3

// DefaultMaxFileSize caps a single fetched file.
const DefaultMaxFileSize int64 = 512 << 20

var downloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mod_updater_downloads_total",
		Help: "Mod file downloads by result.",
	},
	[]string{"result"},
)

// Target is one file to download.
type Target struct {
	Filename string
	URL      string
}

// Opener hands a single file to the user.
type Opener interface {
	Open(ctx context.Context, t Target) error
}

// Report lists what happened to each target.
type Report struct {
	Opened   []Target
	Archived []Target
	// Failed still failed after the proxy retry. Their URLs are the manual
	// fallback.
	Failed []Target
}

// Downloader implements the one-or-many download flow.
type Downloader struct {
	Opener Opener
	Client *http.Client
	// ProxyURL is the proxy endpoint; failed fetches are retried once as
	// ProxyURL?url=<target>. Empty disables the retry.
	ProxyURL string
	Parallel int
	// MaxFileSize bounds each fetched body; 0 means DefaultMaxFileSize.
	MaxFileSize int64
	Logger      *zap.SugaredLogger
}

func (d *Downloader) log() *zap.SugaredLogger {
	if d.Logger != nil {
		return d.Logger
	}
	return logger.Log
}

func (d *Downloader) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: 2 * time.Minute}
}

func (d *Downloader) maxFileSize() int64 {
	if d.MaxFileSize > 0 {
		return d.MaxFileSize
	}
	return DefaultMaxFileSize
}

// Download opens up to DirectLimit targets directly. Larger batches are
// fetched concurrently and written to archive as one zip.
func (d *Downloader) Download(ctx context.Context, targets []Target, archive io.Writer) (Report, error) {
	var report Report
	if len(targets) == 0 {
		return report, nil
	}

	if len(targets) <= DirectLimit {
		for _, t := range targets {
			if err := d.Opener.Open(ctx, t); err != nil {
				d.log().Warnw("Failed to open download", zap.String("file", t.Filename), zap.Error(err))
				downloadsTotal.WithLabelValues("failed").Inc()
				report.Failed = append(report.Failed, t)
				continue
			}
			downloadsTotal.WithLabelValues("opened").Inc()
			report.Opened = append(report.Opened, t)
		}
		return report, nil
	}

	payloads := make([][]byte, len(targets))
	parallel := d.Parallel
	if parallel <= 0 {
		parallel = 8
	}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(parallel)
	for i, t := range targets {
		g.Go(func() error {
			data, err := d.fetchWithFallback(ctx, t)
			if err != nil {
				d.log().Warnw("Download failed", zap.String("file", t.Filename), zap.Error(err))
				return nil
			}
			mu.Lock()
			payloads[i] = data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	zw := zip.NewWriter(archive)
	for i, t := range targets {
		if payloads[i] == nil {
			downloadsTotal.WithLabelValues("failed").Inc()
			report.Failed = append(report.Failed, t)
			continue
		}
		w, err := zw.Create(t.Filename)
		if err != nil {
			return report, fmt.Errorf("failed to add %s to archive: %w", t.Filename, err)
		}
		if _, err := w.Write(payloads[i]); err != nil {
			return report, fmt.Errorf("failed to write %s to archive: %w", t.Filename, err)
		}
		downloadsTotal.WithLabelValues("archived").Inc()
		report.Archived = append(report.Archived, t)
	}
	if err := zw.Close(); err != nil {
		return report, fmt.Errorf("failed to finish archive: %w", err)
	}
	return report, nil
}

func (d *Downloader) fetchWithFallback(ctx context.Context, t Target) ([]byte, error) {
	data, err := d.fetch(ctx, t.URL)
	if err == nil || d.ProxyURL == "" {
		return data, err
	}
	d.log().Infow("Retrying download through proxy", zap.String("file", t.Filename), zap.Error(err))
	return d.fetch(ctx, ProxiedURL(d.ProxyURL, t.URL))
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	limit := d.maxFileSize()
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("file is %d bytes, larger than the %d byte limit", resp.ContentLength, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file is larger than the %d byte limit", limit)
	}
	return data, nil
}

// ProxiedURL routes target through the proxy endpoint.
func ProxiedURL(proxy, target string) string {
	sep := "?"
	if strings.Contains(proxy, "?") {
		sep = "&"
	}
	return proxy + sep + "url=" + url.QueryEscape(target)
}

// FileSaver streams a remote file straight to disk.
type FileSaver interface {
	DownloadFile(ctx context.Context, destinationPath, downloadURL string) error
}

// DirOpener saves each file into Dir, through Saver when one is set.
type DirOpener struct {
	Dir    string
	Client *http.Client
	Saver  FileSaver
}

func (o DirOpener) Open(ctx context.Context, t Target) error {
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory '%s': %w", o.Dir, err)
	}
	dest := filepath.Join(o.Dir, filepath.Base(t.Filename))
	if o.Saver != nil {
		return o.Saver.DownloadFile(ctx, dest, t.URL)
	}
	d := Downloader{Client: o.Client}
	data, err := d.fetch(ctx, t.URL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", t.Filename, err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write file '%s': %w", dest, err)
	}
	return nil
}
