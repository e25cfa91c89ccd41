//go:build darwin

package trash

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// macOS keeps no metadata next to trashed files; name clashes get a timestamp.

func moveToTrash(path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("trash directory not found: %w", err)
	}
	trashPath := filepath.Join(home, ".Trash")

	baseName := filepath.Base(path)
	destPath := filepath.Join(trashPath, baseName)
	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(baseName)
		name := strings.TrimSuffix(baseName, ext)
		destPath = filepath.Join(trashPath, fmt.Sprintf("%s %s%s", name, time.Now().Format("2006-01-02-150405"), ext))
	}

	if err := os.Rename(path, destPath); err != nil {
		return moveCrossDevice(path, destPath)
	}
	return nil
}

func moveCrossDevice(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fi.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func reveal(path string) error {
	return exec.Command("open", "-R", path).Start()
}

func displayName() string { return "Trash" }
