package reconcile

import (
	"slices"

	"mod-updater/apiclient"
	"mod-updater/classify"
	"mod-updater/modrinth"
)

// AvailableMod is a resolved project with its classified candidates.
type AvailableMod struct {
	File         string
	Project      modrinth.Project
	Versions     []classify.ClassifiedVersion
	IsDependency bool
}

// Selected returns the selected candidate, or the first one.
func (m AvailableMod) Selected() *classify.ClassifiedVersion {
	if v := classify.Selected(m.Versions); v != nil {
		return v
	}
	if len(m.Versions) > 0 {
		return &m.Versions[0]
	}
	return nil
}

// KnownMod is a project that was found but cannot be offered: no version for
// the game version (Unavailable) or no version for the loader (InvalidLoader).
type KnownMod struct {
	File       string
	ProjectURL string
	Project    modrinth.Project
}

// UnresolvedFile is an input no source could identify.
type UnresolvedFile struct {
	File string
	Slug string
	Err  *apiclient.Error
}

// Buckets is a snapshot of the four result lists. A file name appears in at
// most one of them.
type Buckets struct {
	Available     []AvailableMod
	Unavailable   []KnownMod
	InvalidLoader []KnownMod
	Unresolved    []UnresolvedFile
}

func (b Buckets) clone() Buckets {
	out := Buckets{
		Available:     make([]AvailableMod, len(b.Available)),
		Unavailable:   slices.Clone(b.Unavailable),
		InvalidLoader: slices.Clone(b.InvalidLoader),
		Unresolved:    slices.Clone(b.Unresolved),
	}
	for i, m := range b.Available {
		m.Versions = slices.Clone(m.Versions)
		out.Available[i] = m
	}
	return out
}

// Locate reports which bucket holds file, or "" when none does.
func (b Buckets) Locate(file string) string {
	switch {
	case slices.ContainsFunc(b.Available, func(m AvailableMod) bool { return m.File == file }):
		return "available"
	case slices.ContainsFunc(b.Unavailable, func(m KnownMod) bool { return m.File == file }):
		return "unavailable"
	case slices.ContainsFunc(b.InvalidLoader, func(m KnownMod) bool { return m.File == file }):
		return "invalid_loader"
	case slices.ContainsFunc(b.Unresolved, func(u UnresolvedFile) bool { return u.File == file }):
		return "unresolved"
	default:
		return ""
	}
}

func (b *Buckets) remove(file string) {
	b.Available = slices.DeleteFunc(b.Available, func(m AvailableMod) bool { return m.File == file })
	b.Unavailable = slices.DeleteFunc(b.Unavailable, func(m KnownMod) bool { return m.File == file })
	b.InvalidLoader = slices.DeleteFunc(b.InvalidLoader, func(m KnownMod) bool { return m.File == file })
	b.Unresolved = slices.DeleteFunc(b.Unresolved, func(u UnresolvedFile) bool { return u.File == file })
}

func (b *Buckets) hasProject(id string) bool {
	return slices.ContainsFunc(b.Available, func(m AvailableMod) bool { return m.Project.ID == id })
}

func (b *Buckets) in(file string, lists ...[]KnownMod) bool {
	for _, list := range lists {
		if slices.ContainsFunc(list, func(m KnownMod) bool { return m.File == file }) {
			return true
		}
	}
	return false
}

// addAvailable places file in Available. A project already listed under
// another file is not added twice, but file still leaves its other buckets.
func (b *Buckets) addAvailable(m AvailableMod) bool {
	b.remove(m.File)
	if b.hasProject(m.Project.ID) {
		return false
	}
	b.Available = append(b.Available, m)
	return true
}

func (b *Buckets) addInvalidLoader(m KnownMod) {
	if b.in(m.File, b.InvalidLoader, b.Unavailable) {
		return
	}
	b.remove(m.File)
	b.InvalidLoader = append(b.InvalidLoader, m)
}

func (b *Buckets) addUnavailable(m KnownMod) {
	if b.in(m.File, b.Unavailable) {
		return
	}
	b.remove(m.File)
	b.Unavailable = append(b.Unavailable, m)
}

// addUnresolved keeps a file that some source already identified.
func (b *Buckets) addUnresolved(u UnresolvedFile) {
	if b.in(u.File, b.InvalidLoader, b.Unavailable) {
		return
	}
	b.remove(u.File)
	b.Unresolved = append(b.Unresolved, u)
}

func (b *Buckets) evictUnresolved(files map[string]bool) {
	b.Unresolved = slices.DeleteFunc(b.Unresolved, func(u UnresolvedFile) bool { return files[u.File] })
}
