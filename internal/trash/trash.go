// Package trash moves deleted images to the system trash and reveals files
// in the platform file manager.
package trash

import (
	"fmt"
)

// DeleteError reports a file that could not be moved to the trash. The file
// is left where it was.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("move %s to %s: %v", e.Path, displayName(), e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// MoveToTrash moves a file to the system trash.
func MoveToTrash(path string) error {
	if err := moveToTrash(path); err != nil {
		return &DeleteError{Path: path, Err: err}
	}
	return nil
}

// RevealInFileManager opens the platform file manager at path.
func RevealInFileManager(path string) error {
	if err := reveal(path); err != nil {
		return fmt.Errorf("reveal %s: %w", path, err)
	}
	return nil
}

// DisplayName is "Trash" or "Recycle Bin" depending on the platform.
func DisplayName() string {
	return displayName()
}

// VerbPhrase is the label for the delete action, e.g. "Move to Trash".
func VerbPhrase() string {
	return "Move to " + DisplayName()
}

// System is the platform trash, usable wherever an injectable trasher is
// expected.
type System struct{}

func (System) MoveToTrash(path string) error         { return MoveToTrash(path) }
func (System) RevealInFileManager(path string) error { return RevealInFileManager(path) }
