package env

import (
	"os"
	"path/filepath"
)

// WorkspaceEnv overrides the default workspace directory.
const WorkspaceEnv = "HPKG_WORKSPACE"

// WorkDir returns the workspace that holds build and package trees. It is
// $HPKG_WORKSPACE when set, otherwise <user cache dir>/.hpkg.
func WorkDir() (string, error) {
	if dir := os.Getenv(WorkspaceEnv); dir != "" {
		return filepath.Abs(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".hpkg"), nil
}
