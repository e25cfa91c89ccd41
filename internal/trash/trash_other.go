//go:build !linux && !darwin && !windows

package trash

import "errors"

var errUnsupported = errors.New("not supported on this platform")

func moveToTrash(string) error { return errUnsupported }
func reveal(string) error      { return errUnsupported }
func displayName() string      { return "Trash" }
