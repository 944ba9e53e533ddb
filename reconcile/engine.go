// Package reconcile resolves local mod files against Modrinth, GitHub
// releases and CurseForge, and sorts them into result buckets.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mod-updater/apiclient"
	"mod-updater/curseforge"
	"mod-updater/github"
	"mod-updater/loader"
	"mod-updater/logger"
	"mod-updater/modrinth"
)

const (
	DefaultMaxUnits  = 290
	DefaultChunkSize = 30

	// Progress stays below this until the dependency pass is done.
	primaryPassShare = 0.95
)

// ErrBusy is returned when a run is started while another is in progress.
var ErrBusy = errors.New("a reconciliation run is already in progress")

// ModrinthAPI is the primary registry.
type ModrinthAPI interface {
	GetVersionByHash(ctx context.Context, hash string) (*modrinth.Version, error)
	GetProject(ctx context.Context, id string) (*modrinth.Project, error)
	GetProjectVersions(ctx context.Context, id, gameVersion string, loaders []string) ([]modrinth.Version, error)
}

// CurseforgeAPI is the secondary registry.
type CurseforgeAPI interface {
	GetFileFromBytes(ctx context.Context, data []byte) (*curseforge.File, error)
	GetMod(ctx context.Context, id int) (*curseforge.Mod, error)
	GetFiles(ctx context.Context, ids []int) ([]curseforge.File, error)
	GetModFileChangelog(ctx context.Context, modID, fileID int) (string, error)
}

// GitHubAPI is the filename-matched release fallback.
type GitHubAPI interface {
	GetModInfoForFile(ctx context.Context, filename string, l loader.Loader, gameVersion string) (*github.ModInfo, error)
}

// Settings are the user's target selection.
type Settings struct {
	GameVersion string
	Loader      loader.Loader
	CurseForge  bool
}

// Options configures an Engine. Modrinth is required.
type Options struct {
	Modrinth   ModrinthAPI
	CurseForge CurseforgeAPI
	GitHub     GitHubAPI
	Notifier   apiclient.Notifier
	Logger     *zap.SugaredLogger
	Settings   Settings

	MaxUnits  int
	ChunkSize int
	// Parallel bounds concurrent units inside a chunk; 0 means ChunkSize.
	Parallel int
	// OnProgress receives the progress fraction after every unit.
	OnProgress func(fraction float64)
}

// RunSummary describes one call to Run.
type RunSummary struct {
	RunID        uuid.UUID
	Units        int
	Skipped      int
	Dropped      int
	Dependencies int
	// Superseded is set when Reset ran while this run was in flight and its
	// results were discarded.
	Superseded bool
}

// Engine owns the result buckets across runs.
type Engine struct {
	modrinth   ModrinthAPI
	curseforge CurseforgeAPI
	github     GitHubAPI
	notifier   apiclient.Notifier
	log        *zap.SugaredLogger
	onProgress func(float64)

	maxUnits  int
	chunkSize int
	parallel  int

	mu         sync.Mutex
	settings   Settings
	generation uuid.UUID
	buckets    Buckets
	processed  map[string]bool
	running    bool

	progressMu sync.Mutex
	progress   float64
}

// NewEngine creates an engine with empty buckets.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Modrinth == nil {
		return nil, fmt.Errorf("modrinth client is required")
	}
	e := &Engine{
		modrinth:   opts.Modrinth,
		curseforge: opts.CurseForge,
		github:     opts.GitHub,
		notifier:   opts.Notifier,
		log:        opts.Logger,
		onProgress: opts.OnProgress,
		maxUnits:   opts.MaxUnits,
		chunkSize:  opts.ChunkSize,
		parallel:   opts.Parallel,
		settings:   opts.Settings,
		generation: uuid.New(),
		processed:  make(map[string]bool),
	}
	if e.notifier == nil {
		e.notifier = apiclient.NopNotifier{}
	}
	if e.log == nil {
		e.log = logger.Log
	}
	if e.maxUnits <= 0 {
		e.maxUnits = DefaultMaxUnits
	}
	if e.chunkSize <= 0 {
		e.chunkSize = DefaultChunkSize
	}
	if e.parallel <= 0 {
		e.parallel = e.chunkSize
	}
	return e, nil
}

// Settings returns the current target selection.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings changes the target selection. Changing the game version or the
// loader resets every bucket.
func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	changed := s.GameVersion != e.settings.GameVersion || s.Loader != e.settings.Loader
	e.settings = s
	e.mu.Unlock()

	if changed {
		e.Reset()
	}
}

// Reset clears every bucket and the processed set. Results still arriving
// from a run started before the reset are dropped.
func (e *Engine) Reset() {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()

	e.mu.Lock()
	e.generation = uuid.New()
	e.buckets = Buckets{}
	e.processed = make(map[string]bool)
	e.running = false
	e.mu.Unlock()

	e.progress = 0
}

// Snapshot copies the current buckets.
func (e *Engine) Snapshot() Buckets {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buckets.clone()
}

// Available copies the Available bucket.
func (e *Engine) Available() []AvailableMod {
	return e.Snapshot().Available
}

// Processing reports whether a run is in flight.
func (e *Engine) Processing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Progress is the fraction reported last.
func (e *Engine) Progress() float64 {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	return e.progress
}

// Processed reports whether file was handled by an earlier run.
func (e *Engine) Processed(file string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed[file]
}

// Run reconciles files. Files already processed are skipped, so repeated runs
// over the same inputs converge.
func (e *Engine) Run(ctx context.Context, files []FileHandle) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.New()}
	log := e.log.With(zap.String("run", summary.RunID.String()))

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return summary, ErrBusy
	}
	gen := e.generation
	settings := e.settings

	seen := make(map[string]bool, len(files))
	var pending []FileHandle
	for _, f := range files {
		name := f.Name()
		if e.processed[name] || seen[name] {
			summary.Skipped++
			continue
		}
		seen[name] = true
		pending = append(pending, f)
	}
	e.buckets.evictUnresolved(seen)
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.generation == gen {
			e.running = false
		}
		e.mu.Unlock()
	}()

	if summary.Skipped > 0 {
		e.notifier.Notice(skippedMessage(summary.Skipped))
	}
	e.setProgress(gen, 0, true)

	direct, packed, packs := e.expand(ctx, gen, pending, log)
	direct, packed, summary.Dropped = capUnits(direct, packed, e.maxUnits)
	if summary.Dropped > 0 {
		msg := droppedMessage(summary.Dropped)
		log.Warnw(msg, zap.Int("max", e.maxUnits))
		e.notifier.Notice(msg)
	}

	units := append(direct, packed...)
	summary.Units = len(units)
	log.Infow("Starting reconciliation",
		zap.Int("units", len(units)),
		zap.Int("skipped", summary.Skipped),
		zap.String("game_version", settings.GameVersion),
		zap.String("loader", settings.Loader.String()))

	var (
		doneMu     sync.Mutex
		done       int
		retryPacks = make(map[string]bool)
	)
	for start := 0; start < len(units); start += e.chunkSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !e.current(gen) {
			break
		}
		end := min(start+e.chunkSize, len(units))

		var g errgroup.Group
		g.SetLimit(e.parallel)
		for _, u := range units[start:end] {
			g.Go(func() error {
				retry := e.processUnit(ctx, gen, settings, u, log)
				doneMu.Lock()
				done++
				if retry && u.pack != "" {
					retryPacks[u.pack] = true
				}
				fraction := float64(done) / float64(len(units)) * primaryPassShare
				doneMu.Unlock()
				e.setProgress(gen, fraction, false)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if e.current(gen) {
		summary.Dependencies = e.expandDependencies(ctx, gen, settings, log)
		// A manifest is done once none of its entries needs another attempt.
		for _, pack := range packs {
			if !retryPacks[pack] {
				e.markProcessed(gen, pack)
			}
		}
		e.setProgress(gen, 1, false)
	}

	summary.Superseded = !e.current(gen)
	log.Infow("Reconciliation finished",
		zap.Int("units", summary.Units),
		zap.Int("dependencies", summary.Dependencies),
		zap.Bool("superseded", summary.Superseded))
	return summary, nil
}

// setProgress reports fraction unless it would move backwards or gen is no
// longer the live run.
func (e *Engine) setProgress(gen uuid.UUID, fraction float64, restart bool) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	if !e.current(gen) {
		return
	}
	if !restart && fraction < e.progress {
		return
	}
	e.progress = fraction
	if e.onProgress != nil {
		e.onProgress(fraction)
	}
}

func (e *Engine) current(gen uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

// mutate applies fn to the buckets when gen is still the live run.
func (e *Engine) mutate(gen uuid.UUID, fn func(b *Buckets)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return false
	}
	fn(&e.buckets)
	return true
}

func (e *Engine) markProcessed(gen uuid.UUID, file string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == gen {
		e.processed[file] = true
	}
}

// capUnits trims direct files and manifest entries proportionally so that at
// most max units remain.
func capUnits(direct, packed []unit, max int) ([]unit, []unit, int) {
	total := len(direct) + len(packed)
	if total <= max {
		return direct, packed, 0
	}
	hashLimit := min(len(packed), max*len(packed)/total)
	fileLimit := min(len(direct), max-hashLimit)
	return direct[:fileLimit], packed[:hashLimit], total - fileLimit - hashLimit
}

func skippedMessage(n int) string {
	if n == 1 {
		return "Skipping 1 file that was already processed"
	}
	return fmt.Sprintf("Skipping %d files that were already processed", n)
}

func droppedMessage(n int) string {
	if n == 1 {
		return "1 file will not be processed to prevent rate limiting"
	}
	return fmt.Sprintf("%d files will not be processed to prevent rate limiting", n)
}
