//go:build !linux

package joystick

import (
	"runtime"

	"codeberg.org/mutker/padstate/internal/errors"
)

// Open is only implemented on Linux.
func Open(path string) (*Device, error) {
	return nil, errors.New().WithData(ErrUnsupportedOS, runtime.GOOS)
}
