//go:build !windows

package vm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func pageSize() uintptr {
	return uintptr(unix.Getpagesize())
}

func reserve(size uintptr) (Region, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return Region{}, fmt.Errorf("vm: mmap reserve %d bytes: %w", size, err)
	}
	return Region{Ptr: data, Size: size}, nil
}

func commit(r Region, size uintptr) error {
	if err := unix.Mprotect(r.Ptr[:size], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vm: mprotect commit %d bytes: %w", size, err)
	}
	return nil
}

func free(r Region) error {
	if err := unix.Munmap(r.Ptr); err != nil {
		return fmt.Errorf("vm: munmap: %w", err)
	}
	return nil
}

// protect sets [offset, offset+size) of r to read/write, or to no access
// (a guard page). It is unexported and has no caller in this module.
func protect(r Region, offset, size uintptr, readWrite bool) error {
	prot := unix.PROT_NONE
	if readWrite {
		prot = unix.PROT_READ | unix.PROT_WRITE
	}
	return unix.Mprotect(r.Ptr[offset:offset+size], prot)
}
