package disk

import (
	"sync"
)

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	l    *sync.RWMutex
	data []byte
}

func NewMemDisk(size uint64) *memDisk {
	return &memDisk{l: new(sync.RWMutex), data: make([]byte, size)}
}

func (d *memDisk) ReadAt(off uint64, b []byte) error {
	d.l.RLock()
	defer d.l.RUnlock()
	checkRange("read", off, len(b), uint64(len(d.data)))
	copy(b, d.data[off:])
	return nil
}

func (d *memDisk) WriteAt(off uint64, b []byte) error {
	d.l.Lock()
	defer d.l.Unlock()
	checkRange("write", off, len(b), uint64(len(d.data)))
	copy(d.data[off:], b)
	return nil
}

func (d *memDisk) Size() uint64 {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.data))
}

func (d *memDisk) Barrier() error { return nil }

func (d *memDisk) Close() error { return nil }
