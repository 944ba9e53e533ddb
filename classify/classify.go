// Package classify tags candidate versions relative to an installed one.
package classify

import "mod-updater/modrinth"

// Status of a candidate relative to the installed version.
type Status int

const (
	Unspecified Status = iota
	Installed
	Updated
	Outdated
)

func (s Status) String() string {
	switch s {
	case Installed:
		return "installed"
	case Updated:
		return "updated"
	case Outdated:
		return "outdated"
	default:
		return "unspecified"
	}
}

// ClassifiedVersion is a candidate with its status and selection flag.
type ClassifiedVersion struct {
	modrinth.Version
	Status   Status
	Selected bool
}

// Classify tags candidates against reference for the target game version.
// Candidate order is preserved and the first candidate is selected.
//
// Game versions are compared as plain strings, so "1.9" sorts after "1.10".
func Classify(reference *modrinth.Version, candidates []modrinth.Version, target string) []ClassifiedVersion {
	out := make([]ClassifiedVersion, len(candidates))
	for i, c := range candidates {
		out[i] = ClassifiedVersion{Version: c, Selected: i == 0}
	}
	if reference == nil {
		return out
	}

	refGameVersion := ReferenceGameVersion(*reference)
	if refGameVersion == "" || refGameVersion > target {
		return out
	}

	for i := range out {
		switch {
		case matches(*reference, out[i].ID):
			out[i].Status = Installed
		case out[i].DatePublished.After(reference.DatePublished):
			out[i].Status = Updated
		default:
			out[i].Status = Outdated
		}
	}
	return out
}

// ReferenceGameVersion is the reference's last declared game version, or the
// "minecraft" pin of a pack entry. Empty means unknown.
func ReferenceGameVersion(v modrinth.Version) string {
	if n := len(v.GameVersions); n > 0 {
		return v.GameVersions[n-1]
	}
	return v.PackDependencies["minecraft"]
}

func matches(reference modrinth.Version, id string) bool {
	return id == reference.ID || (reference.AlternateID != "" && id == reference.AlternateID)
}

// Select marks the candidate with versionID as the only selected one. It
// reports false and changes nothing when no candidate has that id.
func Select(versions []ClassifiedVersion, versionID string) bool {
	found := -1
	for i := range versions {
		if versions[i].ID == versionID {
			found = i
			break
		}
	}
	if found < 0 {
		return false
	}
	for i := range versions {
		versions[i].Selected = i == found
	}
	return true
}

// Selected returns the selected candidate, or nil.
func Selected(versions []ClassifiedVersion) *ClassifiedVersion {
	for i := range versions {
		if versions[i].Selected {
			return &versions[i]
		}
	}
	return nil
}
