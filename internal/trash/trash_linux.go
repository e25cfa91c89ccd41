//go:build linux

package trash

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Linux follows the freedesktop.org trash layout:
//
//	$XDG_DATA_HOME/Trash/files/<name>
//	$XDG_DATA_HOME/Trash/info/<name>.trashinfo

func getPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "Trash")
}

func moveToTrash(path string) error {
	root := getPath()
	if root == "" {
		return fmt.Errorf("trash directory not found")
	}
	filesPath := filepath.Join(root, "files")
	infoPath := filepath.Join(root, "info")
	if err := os.MkdirAll(filesPath, 0700); err != nil {
		return fmt.Errorf("cannot create trash files directory: %w", err)
	}
	if err := os.MkdirAll(infoPath, 0700); err != nil {
		return fmt.Errorf("cannot create trash info directory: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(absPath); err != nil {
		return err
	}

	baseName := filepath.Base(absPath)
	destName := baseName
	destPath := filepath.Join(filesPath, destName)
	for n := 1; ; n++ {
		if _, err := os.Lstat(destPath); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(baseName)
		destName = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(baseName, ext), n, ext)
		destPath = filepath.Join(filesPath, destName)
	}

	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: absPath}).EscapedPath(),
		time.Now().Format("2006-01-02T15:04:05"))
	infoFile := filepath.Join(infoPath, destName+".trashinfo")
	if err := os.WriteFile(infoFile, []byte(info), 0600); err != nil {
		return fmt.Errorf("cannot create trashinfo file: %w", err)
	}

	if err := os.Rename(absPath, destPath); err != nil {
		os.Remove(infoFile)
		return fmt.Errorf("cannot move file to trash: %w", err)
	}
	return nil
}

// reveal opens the containing folder; xdg-open has no portable way to
// select the file itself.
func reveal(path string) error {
	return exec.Command("xdg-open", filepath.Dir(path)).Start()
}

func displayName() string { return "Trash" }
