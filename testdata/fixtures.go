// Package testdata provides calibrated layouts shared by tests.
package testdata

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed layouts
var layoutsFS embed.FS

// SampleLayout is the id of the perspective layout with one missing node.
const SampleLayout = "sample"

// LoadLayout returns the raw grid.json of the named layout.
func LoadLayout(name string) ([]byte, error) {
	data, err := layoutsFS.ReadFile("layouts/" + name + "/grid.json")
	if err != nil {
		return nil, fmt.Errorf("load layout %s: %w", name, err)
	}
	return data, nil
}

// CopyLayouts writes every embedded layout under dir and returns dir.
func CopyLayouts(dir string) (string, error) {
	err := fs.WalkDir(layoutsFS, "layouts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("layouts", filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := layoutsFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("copy layouts: %w", err)
	}
	return dir, nil
}
