//go:build linux

package joystick

import (
	"os"
	"unsafe"

	"codeberg.org/mutker/padstate/internal/errors"
	"golang.org/x/sys/unix"
)

const (
	jsiocgAxes    = 0x80016a11
	jsiocgButtons = 0x80016a12
	jsiocgName    = 0x80006a13 + (nameLength << 16)

	nameLength = 128
)

// Open opens a joystick device node and starts reading it.
func Open(path string) (*Device, error) {
	errFactory := errors.New()

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	info, err := query(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}

	d := NewDevice(f, info)
	d.log.Info().
		Str("name", info.Name).
		Int("axes", info.Axes).
		Int("buttons", info.Buttons).
		Msg("Joystick opened")

	return d, nil
}

func query(f *os.File, path string) (Info, error) {
	errFactory := errors.New()
	info := Info{Path: path}

	var axes, buttons uint8
	if err := ioctl(f, jsiocgAxes, unsafe.Pointer(&axes)); err != nil {
		return Info{}, errFactory.Wrap(ErrQueryFailed, err)
	}
	if err := ioctl(f, jsiocgButtons, unsafe.Pointer(&buttons)); err != nil {
		return Info{}, errFactory.Wrap(ErrQueryFailed, err)
	}

	name := make([]byte, nameLength)
	if err := ioctl(f, jsiocgName, unsafe.Pointer(&name[0])); err != nil {
		return Info{}, errFactory.Wrap(ErrQueryFailed, err)
	}

	info.Axes = int(axes)
	info.Buttons = int(buttons)
	info.Name = unix.ByteSliceToString(name)

	return info, nil
}

func ioctl(f *os.File, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}
