//go:build unix

package binary

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open memory-maps path and loads it as a compiled artifact. The mapping
// is released on Close; callers must not retain any string or byte slice
// obtained from the returned Loader past that call.
func Open(path string) (*Loader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("binary: empty file %q", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Falls back to a buffered read when the host filesystem doesn't
		// support mmap (e.g. some overlay/network mounts returning ENODEV).
		return openBuffered(path)
	}

	l, err := Load(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	l.closer = func() error { return unix.Munmap(data) }
	return l, nil
}
