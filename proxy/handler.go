package proxy

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var dispositionFilename = regexp.MustCompile(`filename[^;=\n]*=\s*(?:"([^"]*)"|'([^']*)'|([^;\n]*))`)

// fileHandler re-serves a remote file from this origin.
type fileHandler struct {
	client  *http.Client
	log     *zap.SugaredLogger
	maxSize int64
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		http.Error(w, "invalid url parameter", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "invalid url parameter", http.StatusBadRequest)
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Warnw("Upstream request failed", zap.String("url", raw), zap.Error(err))
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.log.Infow("Upstream returned non-OK status", zap.String("url", raw), zap.Int("status", resp.StatusCode))
		http.Error(w, fmt.Sprintf("upstream returned %s", resp.Status), resp.StatusCode)
		return
	}

	if resp.ContentLength > h.maxSize {
		h.log.Warnw("Upstream file too large", zap.String("url", raw), zap.Int64("bytes", resp.ContentLength))
		http.Error(w, "upstream file too large", http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", Filename(resp.Header.Get("Content-Disposition"), target)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	if resp.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	// Bodies without a declared length are cut off at the limit.
	n, err := io.Copy(w, io.LimitReader(resp.Body, h.maxSize))
	bytesProxied.Add(float64(n))
	if err != nil {
		h.log.Warnw("Streaming proxied file failed", zap.String("url", raw), zap.Int64("bytes", n), zap.Error(err))
		return
	}
	if n == h.maxSize {
		if extra, _ := resp.Body.Read(make([]byte, 1)); extra > 0 {
			h.log.Warnw("Proxied file truncated at size limit", zap.String("url", raw), zap.Int64("bytes", n))
		}
	}
}

// Filename picks the download name from an upstream Content-Disposition
// header, falling back to the last segment of the URL path.
func Filename(disposition string, target *url.URL) string {
	if m := dispositionFilename.FindStringSubmatch(disposition); m != nil {
		for _, name := range m[1:] {
			if name = strings.TrimSpace(name); name != "" {
				return name
			}
		}
	}
	name := path.Base(target.Path)
	if name == "/" || name == "." || name == "" {
		return "download"
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
