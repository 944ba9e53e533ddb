package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mod-updater/classify"
	"mod-updater/db"
	"mod-updater/download"
	"mod-updater/modrinth"
	"mod-updater/mojang"
	"mod-updater/reconcile"
)

func availableMod(id, title, file string, status classify.Status) reconcile.AvailableMod {
	return reconcile.AvailableMod{
		File:    file,
		Project: modrinth.Project{ID: id, Title: title},
		Versions: []classify.ClassifiedVersion{{
			Version: modrinth.Version{
				ID:            id + "-v2",
				VersionNumber: "2.0.0",
				Files:         []modrinth.File{{Filename: id + "-2.0.0.jar", URL: "https://cdn.example/" + id + "-2.0.0.jar", Primary: true}},
			},
			Status:   status,
			Selected: true,
		}},
	}
}

func TestCollectInputs(t *testing.T) {
	tmpDir := t.TempDir()
	modsDir := filepath.Join(tmpDir, "mods")
	if err := os.MkdirAll(modsDir, 0755); err != nil {
		t.Fatalf("Failed to create mods directory: %v", err)
	}
	for _, name := range []string{"a.jar", "b.zip"} {
		if err := os.WriteFile(filepath.Join(modsDir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(tmpDir, "single.jar")
	if err := os.WriteFile(single, []byte("single"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("defaults to mods dir", func(t *testing.T) {
		files, err := collectInputs(nil, modsDir)
		if err != nil {
			t.Fatalf("collectInputs failed: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("Expected 2 files, got %d", len(files))
		}
	})

	t.Run("mixes files and directories", func(t *testing.T) {
		files, err := collectInputs([]string{single, modsDir}, "")
		if err != nil {
			t.Fatalf("collectInputs failed: %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("Expected 3 files, got %d", len(files))
		}
		if files[0].Name() != "single.jar" {
			t.Errorf("Expected single.jar first, got %s", files[0].Name())
		}
	})

	t.Run("missing input", func(t *testing.T) {
		if _, err := collectInputs([]string{filepath.Join(tmpDir, "nope.jar")}, ""); err == nil {
			t.Error("Expected error for missing input")
		}
	})
}

func TestArchivePath(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	got := archivePath("/out", now)
	want := filepath.Join("/out", "mod-updates-20240305-140709.zip")
	if got != want {
		t.Errorf("archivePath() = %q, want %q", got, want)
	}
}

func TestDownloadRecords(t *testing.T) {
	mods := []reconcile.AvailableMod{
		availableMod("sodium", "Sodium", "sodium.jar", classify.Updated),
		availableMod("iris", "Iris", "iris.jar", classify.Updated),
	}
	report := download.Report{
		Archived: []download.Target{{Filename: "sodium-2.0.0.jar", URL: "https://cdn.example/sodium-2.0.0.jar"}},
		Failed:   []download.Target{{Filename: "iris-2.0.0.jar", URL: "https://cdn.example/iris-2.0.0.jar"}},
	}

	records := downloadRecords(report, "/out/mods.zip", mods)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ProjectID != "sodium" || records[0].Result != "archived" || records[0].ArchivePath != "/out/mods.zip" {
		t.Errorf("Unexpected archived record: %+v", records[0])
	}
	if records[0].VersionID != "sodium-v2" {
		t.Errorf("Expected version sodium-v2, got %s", records[0].VersionID)
	}
	if records[1].ProjectID != "iris" || records[1].Result != "failed" || records[1].ArchivePath != "" {
		t.Errorf("Unexpected failed record: %+v", records[1])
	}
}

func TestDownloadSummary(t *testing.T) {
	one := []download.Target{{Filename: "a.jar"}}
	two := []download.Target{{Filename: "a.jar"}, {Filename: "b.jar"}}

	tests := []struct {
		name    string
		report  download.Report
		archive string
		want    string
	}{
		{"nothing", download.Report{}, "", "Nothing to download"},
		{"opened", download.Report{Opened: two}, "", "Downloaded 2 files"},
		{"opened with failures", download.Report{Opened: one, Failed: one}, "", "Downloaded 1 files, 1 failed"},
		{"archived", download.Report{Archived: two}, "/out/x.zip", "Saved 2 files to /out/x.zip"},
		{"archived with failures", download.Report{Archived: two, Failed: one}, "/out/x.zip", "Saved 2 files to /out/x.zip, 1 failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := downloadSummary(tt.report, tt.archive); got != tt.want {
				t.Errorf("downloadSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBuckets(t *testing.T) {
	dep := availableMod("fabric-api", "Fabric API", "dependency:fabric-api", classify.Installed)
	dep.IsDependency = true
	b := reconcile.Buckets{
		Available: []reconcile.AvailableMod{
			availableMod("sodium", "Sodium", "sodium.jar", classify.Updated),
			dep,
		},
		Unavailable:   []reconcile.KnownMod{{File: "old.jar", ProjectURL: "https://modrinth.com/mod/old", Project: modrinth.Project{Title: "Old Mod"}}},
		InvalidLoader: []reconcile.KnownMod{{File: "forgy.jar", Project: modrinth.Project{Title: "Forgy", Loaders: []string{"forge"}}}},
		Unresolved:    []reconcile.UnresolvedFile{{File: "mystery.jar"}},
	}

	out := renderBuckets(b, reconcile.SortDefault, "")
	for _, want := range []string{
		"Available (1)", "Sodium", "2.0.0", "update-available",
		"Dependencies (1)", "Fabric API",
		"No version for this game version (1)", "https://modrinth.com/mod/old",
		"Wrong loader (1)", "forge",
		"Not found (1)", "mystery.jar",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}

	filtered := renderBuckets(b, reconcile.SortDefault, "fabric")
	if strings.Contains(filtered, "Available (") {
		t.Errorf("Filter should hide Sodium:\n%s", filtered)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"Hello World", 5, "He..."},
		{"Hi", 5, "Hi"},
		{"Test", 4, "Test"},
		{"LongString", 7, "Long..."},
		{"", 5, ""},
	}

	for _, test := range tests {
		result := truncate(test.input, test.maxLen)
		if result != test.expected {
			t.Fatalf("truncate(%q, %d) = %q, expected %q", test.input, test.maxLen, result, test.expected)
		}
	}
}

func TestFormatPreferences(t *testing.T) {
	values := map[string]string{"mc-version": "1.20.1", "loader": "fabric"}

	all := formatPreferences(values, nil)
	want := "mc-version=1.20.1\nloader=fabric\ncurseforge-support=(unset)\n"
	if all != want {
		t.Errorf("formatPreferences() = %q, want %q", all, want)
	}

	if got := formatPreferences(values, []string{"loader"}); got != "loader=fabric\n" {
		t.Errorf("formatPreferences(loader) = %q", got)
	}
}

func TestFormatVersions(t *testing.T) {
	versions := []mojang.Version{
		{ID: "1.21", Type: "release"},
		{ID: "1.20.1", Type: "release"},
		{ID: "1.20", Type: "release"},
	}

	out := formatVersions(versions, "1.20.1", 2)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "* ") {
		t.Errorf("Expected selected marker on 1.20.1, got %q", lines[1])
	}
	if strings.HasPrefix(lines[0], "* ") {
		t.Errorf("Unexpected marker on 1.21: %q", lines[0])
	}
}

func TestFormatHistory(t *testing.T) {
	if got := formatHistory(nil); got != "No downloads recorded\n" {
		t.Errorf("formatHistory(nil) = %q", got)
	}

	records := []db.Download{
		{Title: "Sodium", FileName: "sodium-2.0.0.jar", Result: "archived", ArchivePath: "/out/mods.zip"},
		{Title: "Iris", FileName: "iris-2.0.0.jar", Result: "failed"},
	}
	out := formatHistory(records)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "sodium-2.0.0.jar") || !strings.Contains(lines[0], "/out/mods.zip") {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "failed") {
		t.Errorf("Unexpected second line %q", lines[1])
	}
}
