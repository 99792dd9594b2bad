// Package filex contains small filesystem helpers shared by the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureUserConfigDir creates (if needed) and returns the per-user
// configuration directory for appName, e.g. ~/.config/<appName> on Linux.
// The keystore uses it as the directory of the encrypted-file keyring
// fallback on platforms without a native secret store.
func EnsureUserConfigDir(appName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}

	dir := filepath.Join(base, appName)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
