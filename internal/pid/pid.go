// Package pid guards against running two daemons on the same device.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/padstate/internal/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o600
)

// Write writes the current process ID to path. A file left behind by a
// process that is no longer alive is replaced.
func Write(path string) error {
	errFactory := errors.New()

	if running, err := Running(path); err != nil {
		return err
	} else if running {
		return errFactory.WithData(errors.ErrAlreadyRunning, struct {
			Path string
		}{
			Path: path,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return errFactory.Wrap(errors.ErrWritePIDFile, err)
	}

	err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrWritePIDFile, err)
	}

	return nil
}

// Running reports whether path names a live process other than this one.
func Running(path string) (bool, error) {
	errFactory := errors.New()

	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 {
		// Garbage is treated as stale
		return false, nil
	}
	if pid == os.Getpid() {
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}

// Remove removes the PID file.
func Remove(path string) error {
	errFactory := errors.New()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
