// Package opener shows a directory in the platform file manager.
package opener

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

func command(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{path}
	case "darwin":
		return "open", []string{path}
	}
	return "xdg-open", []string{path}
}

// Open creates dir if needed and opens it without waiting for the viewer.
func Open(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	name, args := command(runtime.GOOS, dir)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	go cmd.Wait()
	return nil
}
