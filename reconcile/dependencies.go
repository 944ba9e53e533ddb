package reconcile

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mod-updater/classify"
	"mod-updater/modrinth"
)

// DependencyName is the bucket key used for a dependency with no input file.
func DependencyName(projectID string) string {
	return "dependency: " + projectID
}

// expandDependencies adds the required dependencies of every selected version
// that are not resolved yet. It returns how many were added. Lookup failures
// are logged and otherwise ignored.
func (e *Engine) expandDependencies(ctx context.Context, gen uuid.UUID, settings Settings, log *zap.SugaredLogger) int {
	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return 0
	}
	known := make(map[string]bool, len(e.buckets.Available))
	for _, m := range e.buckets.Available {
		known[m.Project.ID] = true
	}
	var ids []string
	for _, m := range e.buckets.Available {
		selected := m.Selected()
		if selected == nil {
			continue
		}
		for _, id := range selected.RequiredDependencies() {
			if !known[id] {
				known[id] = true
				ids = append(ids, id)
			}
		}
	}
	e.mu.Unlock()

	if len(ids) == 0 {
		return 0
	}
	log.Infow("Resolving dependencies", zap.Int("count", len(ids)))

	var (
		g     errgroup.Group
		added = make(chan struct{}, len(ids))
	)
	g.SetLimit(e.parallel)
	for _, id := range ids {
		g.Go(func() error {
			if e.resolveDependency(ctx, gen, settings, id, log) {
				added <- struct{}{}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(added)
	return len(added)
}

func (e *Engine) resolveDependency(ctx context.Context, gen uuid.UUID, settings Settings, projectID string, log *zap.SugaredLogger) bool {
	name := DependencyName(projectID)
	log = log.With(zap.String("dependency", projectID))

	project, err := e.modrinth.GetProject(ctx, projectID)
	if err != nil {
		log.Debugw("Dependency lookup failed", zap.Error(err))
		return false
	}
	if (project.ProjectType == modrinth.ProjectTypeMod || project.ProjectType == modrinth.ProjectTypeModpack) &&
		!settings.Loader.Compatible(project.Loaders) {
		e.mutate(gen, func(b *Buckets) {
			b.addInvalidLoader(KnownMod{File: name, ProjectURL: project.URL(), Project: *project})
		})
		return false
	}

	e.mu.Lock()
	exists := e.buckets.hasProject(project.ID)
	e.mu.Unlock()
	if exists {
		return false
	}

	versions, err := e.modrinth.GetProjectVersions(ctx, project.ID, settings.GameVersion, settings.Loader.ValidLoaders())
	if err != nil {
		log.Debugw("Dependency versions lookup failed", zap.Error(err))
		return false
	}
	if len(versions) == 0 {
		e.mutate(gen, func(b *Buckets) {
			b.addUnavailable(KnownMod{File: name, ProjectURL: project.URL(), Project: *project})
		})
		return false
	}

	// addAvailable re-checks the project id under the lock.
	return e.addAvailable(gen, name, *project, classify.Classify(nil, versions, settings.GameVersion), true)
}
