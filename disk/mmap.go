package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/util"
)

var _ Disk = (*mmapDisk)(nil)

// mmapDisk maps an entire image file into memory. Writes land in the shared
// mapping and reach the file when the kernel writes the pages back or when
// Barrier is called.
type mmapDisk struct {
	l    *sync.RWMutex
	path string
	data []byte
}

func NewMmapDisk(path string) (*mmapDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.Size <= 0 {
		return nil, fmt.Errorf("map %s: empty image", path)
	}
	data, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	util.DPrintf(1, "NewMmapDisk: %s %d bytes\n", path, len(data))
	return &mmapDisk{l: new(sync.RWMutex), path: path, data: data}, nil
}

func (d *mmapDisk) ReadAt(off uint64, b []byte) error {
	d.l.RLock()
	defer d.l.RUnlock()
	checkRange("read", off, len(b), uint64(len(d.data)))
	copy(b, d.data[off:])
	return nil
}

func (d *mmapDisk) WriteAt(off uint64, b []byte) error {
	d.l.Lock()
	defer d.l.Unlock()
	checkRange("write", off, len(b), uint64(len(d.data)))
	copy(d.data[off:], b)
	return nil
}

func (d *mmapDisk) Size() uint64 {
	return uint64(len(d.data))
}

func (d *mmapDisk) Barrier() error {
	d.l.RLock()
	defer d.l.RUnlock()
	if err := unix.Msync(d.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync %s: %w", d.path, err)
	}
	return nil
}

func (d *mmapDisk) Close() error {
	d.l.Lock()
	defer d.l.Unlock()
	if d.data == nil {
		return nil
	}
	err := unix.Munmap(d.data)
	d.data = nil
	if err != nil {
		return fmt.Errorf("munmap %s: %w", d.path, err)
	}
	return nil
}
