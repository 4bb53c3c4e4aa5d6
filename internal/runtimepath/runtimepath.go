package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// instanceEnvVar lets more than one tilewmd run under the same user session
// without colliding on socket/registry paths — e.g. a nested Xephyr session
// used to test a config change against the daemon already managing the
// outer display. Unset, every path is identical to a single bare instance.
const instanceEnvVar = "TILEWM_INSTANCE"

// Dir returns the runtime directory used by tilewm state and IPC socket
// lookups. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/tilewm-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/tilewm-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// instance returns the configured instance suffix, or "" for the default
// (unsuffixed) instance.
func instance() string {
	return os.Getenv(instanceEnvVar)
}

// withInstanceSuffix inserts "-<instance>" before name's extension when
// TILEWM_INSTANCE is set, so a second daemon's socket/registry files never
// collide with the first's in the same runtime directory.
func withInstanceSuffix(name string) string {
	inst := instance()
	if inst == "" {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%s%s", name[:len(name)-len(ext)], inst, ext)
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, withInstanceSuffix("tilewm.sock")), nil
}

// WorkspaceRegistryPath returns the persisted workspace-restore file path.
func WorkspaceRegistryPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, withInstanceSuffix("tilewm-workspaces.json")), nil
}
