package loader

import (
	"fmt"
	"slices"
	"strings"
)

// Loader is a mod-loading runtime family.
type Loader string

const (
	Fabric   Loader = "fabric"
	Quilt    Loader = "quilt"
	Forge    Loader = "forge"
	NeoForge Loader = "neoforge"
)

// All lists the supported loaders in display order.
var All = []Loader{Fabric, Quilt, Forge, NeoForge}

// Parse accepts any casing of a supported loader name.
func Parse(s string) (Loader, error) {
	l := Loader(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(All, l) {
		return "", fmt.Errorf("unsupported loader %q", s)
	}
	return l, nil
}

func (l Loader) String() string { return string(l) }

// ValidLoaders is the lookup set for l: Quilt also accepts Fabric mods and
// NeoForge also accepts Forge mods.
func (l Loader) ValidLoaders() []string {
	valid := []string{string(l)}
	switch l {
	case Quilt:
		valid = append(valid, string(Fabric))
	case NeoForge:
		valid = append(valid, string(Forge))
	}
	return valid
}

// Compatible reports whether any of a project's declared loaders can run
// under l.
func (l Loader) Compatible(loaders []string) bool {
	for _, declared := range loaders {
		if slices.Contains(l.ValidLoaders(), strings.ToLower(declared)) {
			return true
		}
	}
	return false
}
