//go:build linux

package source

import (
	"errors"

	"golang.org/x/sys/unix"
)

const directFlag = unix.O_DIRECT

func isDirectUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL)
}

func adviseRandom(fd uintptr) error {
	if err := unix.Fadvise(int(fd), 0, 0, unix.FADV_RANDOM); err != nil {
		return err
	}
	return unix.Fadvise(int(fd), 0, 0, unix.FADV_NOREUSE)
}
