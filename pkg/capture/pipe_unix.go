//go:build unix

package capture

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openPipe creates the FIFO if it does not already exist and opens it for
// writing. The open blocks until a reader attaches, per FIFO semantics.
func openPipe(path string) (*os.File, error) {
	if err := unix.Mkfifo(path, 0o644); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("capture: mkfifo %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("capture: open pipe %s: %w", path, err)
	}
	return f, nil
}
