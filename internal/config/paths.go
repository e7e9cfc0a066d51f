package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	BaseDir    string
	DBPath     string
	PaletteDir string
	ExportDir  string
}

func ResolvePaths(appSlug string) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve user config dir: %w", err)
	}

	return ResolvePathsIn(filepath.Join(configDir, appSlug))
}

// ResolvePathsIn lays out the application directories under baseDir and creates them.
func ResolvePathsIn(baseDir string) (Paths, error) {
	paths := Paths{
		BaseDir:    baseDir,
		DBPath:     filepath.Join(baseDir, "beadgrid.db"),
		PaletteDir: filepath.Join(baseDir, "palettes"),
		ExportDir:  filepath.Join(baseDir, "exports"),
	}

	for _, dir := range []string{paths.BaseDir, paths.PaletteDir, paths.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("create app dir %s: %w", dir, err)
		}
	}

	return paths, nil
}
