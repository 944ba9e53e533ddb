package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"mod-updater/classify"
	"mod-updater/download"
)

// SortOption orders the Available list.
type SortOption string

const (
	SortDefault     SortOption = "default"
	SortNameAsc     SortOption = "name-asc"
	SortNameDesc    SortOption = "name-desc"
	SortLastUpdated SortOption = "last-updated"
	SortDownloads   SortOption = "downloads"
	SortType        SortOption = "type"
)

// SortOptions lists every option in menu order.
var SortOptions = []SortOption{SortDefault, SortNameAsc, SortNameDesc, SortLastUpdated, SortDownloads, SortType}

// ParseSortOption accepts any option name; empty means SortDefault.
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortDefault, nil
	}
	opt := SortOption(strings.ToLower(s))
	if !slices.Contains(SortOptions, opt) {
		return "", fmt.Errorf("unknown sort option %q", s)
	}
	return opt, nil
}

// Filter keeps mods whose title contains term, ignoring case.
func Filter(mods []AvailableMod, term string) []AvailableMod {
	if term == "" {
		return mods
	}
	term = strings.ToLower(term)
	var out []AvailableMod
	for _, m := range mods {
		if strings.Contains(strings.ToLower(m.Project.Title), term) {
			out = append(out, m)
		}
	}
	return out
}

// PrimaryMods are mods resolved from input files.
func PrimaryMods(mods []AvailableMod) []AvailableMod {
	return slices.DeleteFunc(slices.Clone(mods), func(m AvailableMod) bool { return m.IsDependency })
}

// DependencyMods are mods added by dependency expansion.
func DependencyMods(mods []AvailableMod) []AvailableMod {
	return slices.DeleteFunc(slices.Clone(mods), func(m AvailableMod) bool { return !m.IsDependency })
}

// statusRank orders the default view: updates first, unknown last.
func statusRank(m AvailableMod) int {
	if len(m.Versions) == 0 {
		return 4
	}
	switch m.Versions[0].Status {
	case classify.Updated:
		return 0
	case classify.Installed:
		return 1
	case classify.Outdated:
		return 2
	default:
		return 3
	}
}

// Sort orders mods in place. Ties keep their resolution order.
func Sort(mods []AvailableMod, opt SortOption) {
	byTitle := func(a, b AvailableMod) int {
		return strings.Compare(strings.ToLower(a.Project.Title), strings.ToLower(b.Project.Title))
	}

	var cmp func(a, b AvailableMod) int
	switch opt {
	case SortNameAsc:
		cmp = byTitle
	case SortNameDesc:
		cmp = func(a, b AvailableMod) int { return byTitle(b, a) }
	case SortLastUpdated:
		cmp = func(a, b AvailableMod) int { return b.Project.Updated.Compare(a.Project.Updated) }
	case SortDownloads:
		cmp = func(a, b AvailableMod) int { return b.Project.Downloads - a.Project.Downloads }
	case SortType:
		cmp = func(a, b AvailableMod) int {
			if c := strings.Compare(a.Project.ProjectType, b.Project.ProjectType); c != 0 {
				return c
			}
			return byTitle(a, b)
		}
	default:
		cmp = func(a, b AvailableMod) int {
			if c := statusRank(a) - statusRank(b); c != 0 {
				return c
			}
			return byTitle(a, b)
		}
	}
	slices.SortStableFunc(mods, cmp)
}

// Select re-selects versionID for the project.
func (e *Engine) Select(projectID, versionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.buckets.Available {
		if e.buckets.Available[i].Project.ID != projectID {
			continue
		}
		if !classify.Select(e.buckets.Available[i].Versions, versionID) {
			return fmt.Errorf("version %s not found for project %s", versionID, projectID)
		}
		return nil
	}
	return fmt.Errorf("project %s is not available", projectID)
}

// DownloadTargets returns the primary file of every selected version. Unless
// all is set only selected versions classified as updates are included.
func (e *Engine) DownloadTargets(all bool) []download.Target {
	var targets []download.Target
	for _, m := range e.Available() {
		v := classify.Selected(m.Versions)
		if v == nil {
			continue
		}
		if !all && v.Status != classify.Updated {
			continue
		}
		f := v.PrimaryFile()
		if f == nil || f.URL == "" {
			continue
		}
		targets = append(targets, download.Target{Filename: f.Filename, URL: f.URL})
	}
	return targets
}
