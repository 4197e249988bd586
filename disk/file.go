package disk

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

// fileDisk accesses an image with positional reads and writes instead of a
// mapping.
type fileDisk struct {
	fd   int
	size uint64
}

func NewFileDisk(path string) (*fileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &fileDisk{fd: fd, size: uint64(stat.Size)}, nil
}

func (d *fileDisk) ReadAt(off uint64, b []byte) error {
	checkRange("read", off, len(b), d.size)
	for n := 0; n < len(b); {
		m, err := unix.Pread(d.fd, b[n:], int64(off)+int64(n))
		if err != nil {
			return fmt.Errorf("pread at %d: %w", off, err)
		}
		if m == 0 {
			return fmt.Errorf("pread at %d: short read", off)
		}
		n += m
	}
	return nil
}

func (d *fileDisk) WriteAt(off uint64, b []byte) error {
	checkRange("write", off, len(b), d.size)
	for n := 0; n < len(b); {
		m, err := unix.Pwrite(d.fd, b[n:], int64(off)+int64(n))
		if err != nil {
			return fmt.Errorf("pwrite at %d: %w", off, err)
		}
		n += m
	}
	return nil
}

func (d *fileDisk) Size() uint64 {
	return d.size
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; the full barrier is fcntl F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}
