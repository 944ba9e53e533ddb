package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"mod-updater/config"
	"mod-updater/curseforge"
	"mod-updater/db"
	"mod-updater/download"
	"mod-updater/github"
	"mod-updater/logger"
	"mod-updater/modrinth"
	"mod-updater/mojang"
	"mod-updater/reconcile"
	"mod-updater/ui"
)

// app is everything a command needs after bootstrap.
type app struct {
	cfg      config.Config
	prefs    db.Preferences
	modrinth *modrinth.Client
	mojang   *mojang.Client
	engine   *reconcile.Engine
	notifier *ui.Notifier
}

// loadConfig reads the configuration and opens the database, applying stored
// preferences to anything the configuration left unset.
func loadConfig(path string) (config.Config, db.Preferences, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, db.Preferences{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := db.InitDatabase(cfg.DatabasePath); err != nil {
		return config.Config{}, db.Preferences{}, err
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	prefs := db.Preferences{DB: db.DB}
	cfg.ApplyPreferences(prefs.Lookup)
	return cfg, prefs, nil
}

// bootstrap handles shared initialization logic for commands.
func bootstrap(ctx context.Context, path string, notifier *ui.Notifier, onProgress func(float64)) (*app, error) {
	cfg, prefs, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	mr, err := modrinth.NewClient(modrinth.Options{
		BaseURL:   cfg.ModrinthBaseURL,
		UserAgent: cfg.UserAgent,
		Notifier:  notifier,
		Logger:    logger.Named(modrinth.APIName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Modrinth client: %w", err)
	}

	mj := mojang.NewClient(mojang.Options{
		ManifestURL: cfg.MojangManifestURL,
		UserAgent:   cfg.UserAgent,
		Logger:      logger.Named(mojang.APIName),
	})

	opts := reconcile.Options{
		Modrinth: mr,
		Notifier: notifier,
		Logger:   logger.Named("reconcile"),
		Settings: reconcile.Settings{
			GameVersion: mj.Resolve(ctx, cfg.MinecraftVersion),
			Loader:      cfg.Loader(),
			CurseForge:  cfg.CurseforgeSupport,
		},
		MaxUnits:   cfg.MaxUnits,
		ChunkSize:  cfg.ChunkSize,
		OnProgress: onProgress,
	}

	// Interface fields stay nil when a source is disabled.
	if cfg.CurseforgeSupport {
		cf, err := curseforge.NewClient(curseforge.Options{
			BaseURL:   cfg.CurseforgeBaseURL,
			APIKey:    cfg.CurseforgeAPIKey,
			UserAgent: cfg.UserAgent,
			Notifier:  notifier,
			Logger:    logger.Named(curseforge.APIName),
		})
		if err != nil {
			logger.Log.Warnw("CurseForge support disabled", zap.Error(err))
			opts.Settings.CurseForge = false
		} else {
			opts.CurseForge = cf
		}
	}
	opts.GitHub = github.NewClient(github.Options{
		BaseURL:   cfg.GithubBaseURL,
		Token:     cfg.GithubToken,
		UserAgent: cfg.UserAgent,
		Modrinth:  mr,
		Notifier:  notifier,
		Logger:    logger.Named(github.APIName),
	})

	engine, err := reconcile.NewEngine(opts)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("Engine ready",
		zap.String("game_version", opts.Settings.GameVersion),
		zap.String("loader", opts.Settings.Loader.String()),
		zap.Bool("curseforge", opts.Settings.CurseForge))

	return &app{
		cfg:      cfg,
		prefs:    prefs,
		modrinth: mr,
		mojang:   mj,
		engine:   engine,
		notifier: notifier,
	}, nil
}

// collectInputs expands args into input files. Directories are scanned; no
// args means the configured mods directory.
func collectInputs(args []string, modsDir string) ([]reconcile.FileHandle, error) {
	if len(args) == 0 {
		return reconcile.ScanDir(modsDir)
	}
	var files []reconcile.FileHandle
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read input '%s': %w", arg, err)
		}
		if info.IsDir() {
			found, err := reconcile.ScanDir(arg)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, reconcile.LocalFile{Path: arg})
	}
	return files, nil
}

// archivePath names the zip for a multi-file download.
func archivePath(outputDir string, now time.Time) string {
	return filepath.Join(outputDir, fmt.Sprintf("mod-updates-%s.zip", now.Format("20060102-150405")))
}

// downloadTargets fetches targets into the output directory and records the
// outcome. It returns the report and the archive path, which is empty when
// the files were saved one by one.
func (a *app) downloadTargets(ctx context.Context, targets []download.Target) (download.Report, string, error) {
	d := download.Downloader{
		Opener:   download.DirOpener{Dir: a.cfg.OutputDir, Saver: a.modrinth},
		ProxyURL: a.cfg.ProxyURL,
		Logger:   logger.Named("download"),
	}

	var (
		report download.Report
		path   string
		err    error
	)
	if len(targets) <= download.DirectLimit {
		report, err = d.Download(ctx, targets, nil)
	} else {
		path = archivePath(a.cfg.OutputDir, time.Now())
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return report, "", fmt.Errorf("failed to create archive '%s': %w", path, err)
		}
		report, err = d.Download(ctx, targets, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return report, path, err
	}

	if rerr := db.RecordDownloads(a.prefs.DB, downloadRecords(report, path, a.engine.Available())); rerr != nil {
		logger.Log.Warnw("Failed to record downloads", zap.Error(rerr))
	}
	return report, path, nil
}

// downloadRecords maps a report back to the mods it came from.
func downloadRecords(report download.Report, archive string, mods []reconcile.AvailableMod) []db.Download {
	byFile := make(map[string]reconcile.AvailableMod)
	versionByFile := make(map[string]string)
	for _, m := range mods {
		if v := m.Selected(); v != nil {
			if f := v.PrimaryFile(); f != nil {
				byFile[f.Filename] = m
				versionByFile[f.Filename] = v.ID
			}
		}
	}

	var records []db.Download
	add := func(targets []download.Target, result, path string) {
		for _, t := range targets {
			m := byFile[t.Filename]
			records = append(records, db.Download{
				ProjectID:   m.Project.ID,
				Title:       m.Project.Title,
				VersionID:   versionByFile[t.Filename],
				FileName:    t.Filename,
				URL:         t.URL,
				Result:      result,
				ArchivePath: path,
			})
		}
	}
	add(report.Opened, "opened", "")
	add(report.Archived, "archived", archive)
	add(report.Failed, "failed", "")
	return records
}

// downloadSummary is the one-line result shown after a download.
func downloadSummary(report download.Report, archive string) string {
	switch {
	case len(report.Opened)+len(report.Archived)+len(report.Failed) == 0:
		return "Nothing to download"
	case archive != "" && len(report.Failed) == 0:
		return fmt.Sprintf("Saved %d files to %s", len(report.Archived), archive)
	case archive != "":
		return fmt.Sprintf("Saved %d files to %s, %d failed", len(report.Archived), archive, len(report.Failed))
	case len(report.Failed) == 0:
		return fmt.Sprintf("Downloaded %d files", len(report.Opened))
	default:
		return fmt.Sprintf("Downloaded %d files, %d failed", len(report.Opened), len(report.Failed))
	}
}
