package infrastructure

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// FolderOpener opens a directory in the host's file manager
type FolderOpener struct {
	goos  string
	start func(name string, args ...string) error
}

// NewFolderOpener creates an opener for the running platform
func NewFolderOpener() *FolderOpener {
	return &FolderOpener{
		goos: runtime.GOOS,
		start: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			if err := cmd.Start(); err != nil {
				return err
			}
			go cmd.Wait()
			return nil
		},
	}
}

// Open creates dir if needed and shows it in the file manager
func (o *FolderOpener) Open(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	name, args := openCommand(o.goos, dir)
	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("failed to open folder with %s: %w", name, err)
	}
	return nil
}

func openCommand(goos, dir string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{dir}
	case "darwin":
		return "open", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}
