package common

import (
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the directory holding packtgrab state files
// such as the SFTP known_hosts.
const ConfigDirEnv = "PACKTGRAB_CONFIG_DIR"

// ConfigDir returns the packtgrab state directory. It is not created.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	cdr, err := os.UserConfigDir()
	if err != nil {
		return ".packtgrab"
	}
	return filepath.Join(cdr, "packtgrab")
}

// KnownHostsPath is the TOFU known_hosts file used for SFTP uploads.
// It is kept apart from ~/.ssh/known_hosts.
func KnownHostsPath() string {
	return filepath.Join(ConfigDir(), "known_hosts")
}
