package migration

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

const modulePath = "github.com/elskow/erlbuild"

// MigrationsDirEnv overrides the migrations directory lookup.
const MigrationsDirEnv = "ERLBUILD_MIGRATIONS_DIR"

func getMigrationsDir() (string, error) {
	if dir := os.Getenv(MigrationsDirEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := findModuleRoot(dir)
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	return filepath.Join(root, "migrations"), nil
}

// findModuleRoot walks up from dir to the directory holding this module's go.mod.
func findModuleRoot(dir string) (string, error) {
	for {
		gomod := filepath.Join(dir, "go.mod")
		if content, err := os.ReadFile(gomod); err == nil {
			if modfile.ModulePath(content) == modulePath {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod for %s not found", modulePath)
		}
		dir = parent
	}
}
