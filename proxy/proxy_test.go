package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/sodium-0.5.jar":
			w.Header().Set("Content-Type", "application/java-archive")
			_, _ = io.WriteString(w, "jar-bytes")
		case "/named":
			w.Header().Set("Content-Disposition", `attachment; filename="real name.jar"`)
			_, _ = io.WriteString(w, "named")
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func proxyPath(target string) string {
	return FilePath + "?url=" + url.QueryEscape(target)
}

func TestProxyFile(t *testing.T) {
	up := upstream(t)
	router := NewRouter(Options{})

	rec := get(t, router, proxyPath(up.URL+"/data/sodium-0.5.jar"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jar-bytes", rec.Body.String())
	assert.Equal(t, "application/java-archive", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sodium-0.5.jar"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")

	rec = get(t, router, proxyPath(up.URL+"/named"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="real name.jar"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestProxyFileErrors(t *testing.T) {
	up := upstream(t)
	router := NewRouter(Options{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing url", FilePath, http.StatusBadRequest},
		{"relative url", proxyPath("/etc/passwd"), http.StatusBadRequest},
		{"unsupported scheme", proxyPath("file:///etc/passwd"), http.StatusBadRequest},
		{"upstream not found", proxyPath(up.URL + "/missing"), http.StatusNotFound},
		{"upstream forbidden", proxyPath(up.URL + "/other"), http.StatusForbidden},
		{"unreachable", proxyPath("http://127.0.0.1:1/x.jar"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestProxyLimitsFileSize(t *testing.T) {
	up := upstream(t)
	streamed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "0123456789")
	}))
	t.Cleanup(streamed.Close)
	router := NewRouter(Options{MaxFileSize: 4})

	rec := get(t, router, proxyPath(up.URL+"/data/sodium-0.5.jar"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = get(t, router, proxyPath(streamed.URL+"/big.jar"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123", rec.Body.String())
}

func TestProxyRejectsOtherMethods(t *testing.T) {
	router := NewRouter(Options{})
	req := httptest.NewRequest(http.MethodPost, FilePath+"?url=http://x/y", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(Options{})

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mod_updater_http_requests_total"))
}

func TestFilename(t *testing.T) {
	u := func(s string) *url.URL {
		parsed, err := url.Parse(s)
		require.NoError(t, err)
		return parsed
	}

	tests := []struct {
		name, disposition, url, want string
	}{
		{"double quoted", `attachment; filename="a.jar"`, "https://x/y/z", "a.jar"},
		{"single quoted", `attachment; filename='b.jar'`, "https://x/y/z", "b.jar"},
		{"bare", `attachment; filename=c.jar; size=3`, "https://x/y/z", "c.jar"},
		{"from path", "", "https://cdn.modrinth.com/data/AANobbMI/versions/1/sodium%20fabric.jar", "sodium fabric.jar"},
		{"empty path", "", "https://x", "download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.disposition, u(tt.url)))
		})
	}
}
