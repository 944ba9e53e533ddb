package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mod-updater/apiclient"
	"mod-updater/classify"
	"mod-updater/curseforge"
	"mod-updater/fingerprint"
	"mod-updater/interop"
	"mod-updater/loader"
	"mod-updater/modrinth"
)

// outcome of one source for one unit.
type outcome struct {
	resolved bool
	err      *apiclient.Error
}

// processUnit runs a unit through GitHub, Modrinth and CurseForge in that
// order and records where it ends up. Panics are recorded as Unresolved. It
// reports whether the unit failed in a way worth retrying on the next run.
func (e *Engine) processUnit(ctx context.Context, gen uuid.UUID, settings Settings, u unit, log *zap.SugaredLogger) (retry bool) {
	log = log.With(zap.String("file", u.name))
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Panic while processing file", zap.Any("panic", r))
			e.unresolved(gen, u.name, "", &apiclient.Error{Kind: apiclient.KindUnknown, Message: fmt.Sprint(r)})
			e.markProcessed(gen, u.name)
			retry = false
		}
	}()

	var data []byte
	hash := u.hash
	if !u.fromManifest() {
		var err error
		data, err = u.handle.Read(ctx)
		if err != nil {
			log.Warnw("Could not read file", zap.Error(err))
			e.unresolved(gen, u.name, "", apiclient.Malformed("", "Could not read file"))
			e.markProcessed(gen, u.name)
			return false
		}
		hash = fingerprint.SHA1(data)
	}

	// retryErr is the first retryable failure; a later source reporting
	// NotFound must not hide it.
	var lastErr, retryErr *apiclient.Error
	try := func(source string, fn func() outcome) bool {
		out := fn()
		if out.err != nil {
			log.Debugw("Source failed", zap.String("source", source), zap.Error(out.err))
			lastErr = out.err
			if retryErr == nil && apiclient.IsRetryableError(out.err) {
				retryErr = out.err
			}
		}
		return out.resolved
	}

	resolved := try(githubSource, func() outcome { return e.tryGitHub(ctx, gen, settings, u) }) ||
		try(modrinth.APIName, func() outcome { return e.tryModrinth(ctx, gen, settings, u, hash) }) ||
		(settings.CurseForge && e.curseforge != nil && data != nil &&
			try(curseforge.APIName, func() outcome { return e.tryCurseforge(ctx, gen, settings, u, data) }))

	if !resolved {
		reason := lastErr
		if retryErr != nil {
			reason = retryErr
		}
		if reason == nil {
			reason = apiclient.NotFound("", "No matching project found")
		}
		e.unresolved(gen, u.name, "", reason)
		if retryErr != nil {
			log.Infow("File will be retried on the next run", zap.String("kind", retryErr.Kind.String()))
			return true
		}
	}
	if !u.fromManifest() {
		e.markProcessed(gen, u.name)
	}
	return false
}

const githubSource = "github"

func (e *Engine) tryGitHub(ctx context.Context, gen uuid.UUID, settings Settings, u unit) outcome {
	if e.github == nil {
		return outcome{}
	}
	info, err := e.github.GetModInfoForFile(ctx, u.filename, settings.Loader, settings.GameVersion)
	if err != nil {
		return outcome{err: apiclient.AsError(githubSource, err)}
	}
	if info == nil {
		return outcome{}
	}

	project := interop.GitHubToProject(info)
	versions := interop.GitHubToVersions(info, settings.GameVersion)
	installed := interop.GitHubInstalledVersion(u.filename, project.ID, settings.GameVersion)
	e.addAvailable(gen, u.name, project, classify.Classify(&installed, versions, settings.GameVersion), false)
	return outcome{resolved: true}
}

func (e *Engine) tryModrinth(ctx context.Context, gen uuid.UUID, settings Settings, u unit, hash string) outcome {
	installed, err := e.modrinth.GetVersionByHash(ctx, hash)
	if err != nil {
		return outcome{err: apiclient.AsError(modrinth.APIName, err)}
	}
	project, err := e.modrinth.GetProject(ctx, installed.ProjectID)
	if err != nil {
		return outcome{err: apiclient.AsError(modrinth.APIName, err)}
	}

	needsLoader := project.ProjectType == modrinth.ProjectTypeMod || project.ProjectType == modrinth.ProjectTypeModpack
	if needsLoader && !settings.Loader.Compatible(project.Loaders) {
		e.mutate(gen, func(b *Buckets) {
			b.addInvalidLoader(KnownMod{File: u.name, ProjectURL: project.URL(), Project: *project})
		})
		return outcome{}
	}

	var loaders []string
	if needsLoader {
		loaders = settings.Loader.ValidLoaders()
	}
	versions, err := e.modrinth.GetProjectVersions(ctx, project.ID, settings.GameVersion, loaders)
	if err != nil {
		return outcome{err: apiclient.AsError(modrinth.APIName, err)}
	}
	if len(versions) == 0 {
		e.mutate(gen, func(b *Buckets) {
			b.addUnavailable(KnownMod{File: u.name, ProjectURL: project.URL(), Project: *project})
		})
		return outcome{}
	}

	reference := *installed
	if len(reference.GameVersions) == 0 && u.pins != nil {
		reference.PackDependencies = u.pins
	}
	e.addAvailable(gen, u.name, *project, classify.Classify(&reference, versions, settings.GameVersion), false)
	return outcome{resolved: true}
}

func (e *Engine) tryCurseforge(ctx context.Context, gen uuid.UUID, settings Settings, u unit, data []byte) outcome {
	file, err := e.curseforge.GetFileFromBytes(ctx, data)
	if err != nil {
		return outcome{err: apiclient.AsError(curseforge.APIName, err)}
	}
	mod, err := e.curseforge.GetMod(ctx, file.ModID)
	if err != nil {
		return outcome{err: apiclient.AsError(curseforge.APIName, err)}
	}
	project := interop.CurseforgeModToProject(*mod)

	var forLoader []curseforge.FileIndex
	for _, idx := range mod.LatestFilesIndexes {
		if curseforgeLoaderMatches(idx.ModLoader, settings.Loader) {
			forLoader = append(forLoader, idx)
		}
	}
	if len(forLoader) == 0 {
		e.mutate(gen, func(b *Buckets) {
			b.addInvalidLoader(KnownMod{File: u.name, ProjectURL: project.URL(), Project: project})
		})
		return outcome{}
	}

	var fileIDs []int
	for _, idx := range forLoader {
		if strings.Contains(idx.GameVersion, settings.GameVersion) && !slices.Contains(fileIDs, idx.FileID) {
			fileIDs = append(fileIDs, idx.FileID)
		}
	}
	if len(fileIDs) == 0 {
		e.mutate(gen, func(b *Buckets) {
			b.addUnavailable(KnownMod{File: u.name, ProjectURL: project.URL(), Project: project})
		})
		return outcome{}
	}

	files, err := e.curseforge.GetFiles(ctx, fileIDs)
	if err != nil {
		return outcome{err: apiclient.AsError(curseforge.APIName, err)}
	}
	if len(files) == 0 {
		return outcome{err: apiclient.NotFound(curseforge.APIName, "no files for mod "+strconv.Itoa(mod.ID))}
	}

	versions := interop.CurseforgeFilesToVersions(files)
	if changelog, err := e.curseforge.GetModFileChangelog(ctx, mod.ID, files[0].ID); err == nil {
		versions[0].Changelog = changelog
	}
	installed := interop.CurseforgeFileToVersion(*file)
	e.addAvailable(gen, u.name, project, classify.Classify(&installed, versions, settings.GameVersion), false)
	return outcome{resolved: true}
}

// curseforgeLoaderMatches treats an index without a loader as matching any.
// CurseForge loaders are compared with the same compatibility rules as
// Modrinth ones.
func curseforgeLoaderMatches(t *curseforge.ModLoaderType, selected loader.Loader) bool {
	if t == nil {
		return true
	}
	l, ok := interop.CurseforgeLoaderToLoader(*t)
	if !ok {
		return true
	}
	return selected.Compatible([]string{l.String()})
}

func (e *Engine) addAvailable(gen uuid.UUID, file string, project modrinth.Project, versions []classify.ClassifiedVersion, isDependency bool) bool {
	added := false
	e.mutate(gen, func(b *Buckets) {
		added = b.addAvailable(AvailableMod{File: file, Project: project, Versions: versions, IsDependency: isDependency})
	})
	return added
}
