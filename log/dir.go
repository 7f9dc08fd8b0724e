package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "aitranscriber"

// defaultDir is the per-user log location: ~/Library/Logs on macOS, the
// local cache dir on Windows and the XDG config dir elsewhere.
func defaultDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", appDir), nil
	case "windows":
		local, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(local, appDir, "logs"), nil
	default:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, appDir, "logs"), nil
	}
}
