package reconcile

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mod-updater/apiclient"
	"mod-updater/modrinth"
)

// unit is one piece of work: an input file, or one entry of a pack manifest.
type unit struct {
	// name keys the unit's bucket entry.
	name string
	// filename is matched against the GitHub repo table.
	filename string
	handle   FileHandle
	hash     string
	// pins are the pack's dependency pins, e.g. {"minecraft": "1.20.1"}.
	pins map[string]string
	// pack is the manifest file the unit came from.
	pack string
}

func (u unit) fromManifest() bool { return u.handle == nil }

// expand turns inputs into units. Manifests are read and parsed here; their
// entries become hash units named "[<pack>] <entry>". packs lists the
// manifests that parsed; they are marked processed after their entries ran.
func (e *Engine) expand(ctx context.Context, gen uuid.UUID, files []FileHandle, log *zap.SugaredLogger) (direct, packed []unit, packs []string) {
	for _, f := range files {
		name := f.Name()
		if !modrinth.IsManifest(name) {
			direct = append(direct, unit{name: name, filename: name, handle: f})
			continue
		}

		data, err := f.Read(ctx)
		if err != nil {
			log.Warnw("Could not read modpack file", zap.String("file", name), zap.Error(err))
			e.unresolved(gen, name, "", apiclient.Malformed("", "Could not read modpack file"))
			e.markProcessed(gen, name)
			continue
		}
		pack, err := modrinth.ParseManifest(name, data)
		if err != nil {
			log.Warnw("Could not parse modpack metadata", zap.String("file", name), zap.Error(err))
			e.unresolved(gen, name, "", apiclient.Malformed("", "Could not parse modpack metadata"))
			e.markProcessed(gen, name)
			continue
		}

		packName := pack.Name
		if packName == "" {
			packName = name
		}
		for _, entry := range pack.Files {
			entryName := fmt.Sprintf("[%s] %s", packName, entry.DisplayName())
			hash := entry.Hashes["sha1"]
			if hash == "" {
				e.unresolved(gen, entryName, "", apiclient.Malformed("", "Manifest entry has no sha1 hash"))
				continue
			}
			packed = append(packed, unit{
				name:     entryName,
				filename: path.Base(entry.Path),
				hash:     hash,
				pins:     pack.Dependencies,
				pack:     name,
			})
		}
		packs = append(packs, name)
	}
	return direct, packed, packs
}

func (e *Engine) unresolved(gen uuid.UUID, file, slug string, err *apiclient.Error) {
	e.mutate(gen, func(b *Buckets) {
		b.addUnresolved(UnresolvedFile{File: file, Slug: slug, Err: err})
	})
}
