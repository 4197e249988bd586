package disk

import (
	"sync"

	gdisk "github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/raidfs/util"
)

var _ Disk = (*blockDisk)(nil)

// blockDisk presents a goose block device (gdisk.BlockSize blocks) as a
// byte-addressed image. Unaligned writes read-modify-write the covering
// device blocks.
type blockDisk struct {
	l    *sync.Mutex
	d    gdisk.Disk
	size uint64
}

func NewBlockDisk(d gdisk.Disk, numBlocks uint64) *blockDisk {
	return &blockDisk{l: new(sync.Mutex), d: d, size: numBlocks * gdisk.BlockSize}
}

func (d *blockDisk) ReadAt(off uint64, b []byte) error {
	d.l.Lock()
	defer d.l.Unlock()
	checkRange("read", off, len(b), d.size)
	for n := uint64(0); n < uint64(len(b)); {
		a := (off + n) / gdisk.BlockSize
		boff := (off + n) % gdisk.BlockSize
		blk := d.d.Read(a)
		n += uint64(copy(b[n:], blk[boff:]))
	}
	return nil
}

func (d *blockDisk) WriteAt(off uint64, b []byte) error {
	d.l.Lock()
	defer d.l.Unlock()
	checkRange("write", off, len(b), d.size)
	for n := uint64(0); n < uint64(len(b)); {
		a := (off + n) / gdisk.BlockSize
		boff := (off + n) % gdisk.BlockSize
		if boff == 0 && uint64(len(b))-n >= gdisk.BlockSize {
			d.d.Write(a, util.CloneByteSlice(b[n:n+gdisk.BlockSize]))
			n += gdisk.BlockSize
			continue
		}
		blk := d.d.Read(a)
		m := uint64(copy(blk[boff:], b[n:]))
		d.d.Write(a, blk)
		n += m
	}
	return nil
}

func (d *blockDisk) Size() uint64 {
	return d.size
}

func (d *blockDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *blockDisk) Close() error {
	d.d.Close()
	return nil
}
