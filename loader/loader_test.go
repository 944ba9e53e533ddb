package loader

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Loader
		wantErr bool
	}{
		{"fabric", Fabric, false},
		{"Quilt", Quilt, false},
		{" NEOFORGE ", NeoForge, false},
		{"forge", Forge, false},
		{"liteloader", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidLoaders(t *testing.T) {
	tests := []struct {
		loader Loader
		want   []string
	}{
		{Fabric, []string{"fabric"}},
		{Quilt, []string{"quilt", "fabric"}},
		{Forge, []string{"forge"}},
		{NeoForge, []string{"neoforge", "forge"}},
	}
	for _, tt := range tests {
		if got := tt.loader.ValidLoaders(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s.ValidLoaders() = %v, want %v", tt.loader, got, tt.want)
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name    string
		loader  Loader
		project []string
		want    bool
	}{
		{"exact", Fabric, []string{"fabric"}, true},
		{"quilt runs fabric", Quilt, []string{"fabric"}, true},
		{"fabric does not run quilt", Fabric, []string{"quilt"}, false},
		{"neoforge runs forge", NeoForge, []string{"Forge"}, true},
		{"forge does not run fabric", Forge, []string{"fabric", "quilt"}, false},
		{"no loaders", Fabric, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loader.Compatible(tt.project); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
		})
	}
}
