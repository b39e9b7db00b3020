//go:build !unix

package capture

import (
	"errors"
	"os"
)

func openPipe(path string) (*os.File, error) {
	return nil, errors.New("capture: named pipes are not supported on this platform")
}
