package alloc

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/super"
	"github.com/mit-pdos/raidfs/util"
)

// BlockAlloc allocates logical data block numbers. Block 0 is never handed
// out; it stands for "unallocated" in inode address lists.
type BlockAlloc interface {
	AllocBlock() (common.Bnum, error)
	FreeBlock(bn common.Bnum) error
	IsAllocated(bn common.Bnum) (bool, error)
	// NumFree and Total count allocatable blocks
	NumFree() (uint64, error)
	Total() uint64
}

// MkInodeAlloc returns the allocator for inode numbers. The inode bitmap is
// mirrored on every disk regardless of RAID mode.
func MkInodeAlloc(sb *super.Superblock, disks []disk.Disk) *Alloc {
	return MkAlloc(disks, sb.IBitmapOff, sb.NInodes, 0)
}

// MkBlockAlloc returns the data block allocator for the set's RAID mode.
func MkBlockAlloc(sb *super.Superblock, disks []disk.Disk) BlockAlloc {
	if sb.Mode == common.Striped {
		return mkStripeAlloc(disks, sb.DBitmapOff, sb.PerDiskBlocks())
	}
	return &mirrorAlloc{MkAlloc(disks, sb.DBitmapOff, sb.PerDiskBlocks(), 1)}
}

// mirrorAlloc shares one bitmap, replicated on every disk, and returns
// bitmap indices unchanged as logical block numbers.
type mirrorAlloc struct {
	*Alloc
}

func (m *mirrorAlloc) AllocBlock() (common.Bnum, error) {
	n, err := m.AllocNum()
	return common.Bnum(n), err
}

func (m *mirrorAlloc) FreeBlock(bn common.Bnum) error {
	if bn == common.NULLBNUM {
		panic("FreeBlock")
	}
	return m.FreeNum(uint64(bn))
}

func (m *mirrorAlloc) IsAllocated(bn common.Bnum) (bool, error) {
	return m.IsUsed(uint64(bn))
}

func (m *mirrorAlloc) Total() uint64 {
	return m.len - m.start
}

// stripeAlloc keeps a private bitmap per disk. Logical block numbers
// interleave the disks: local block i of disk d is i*ndisks + d.
type stripeAlloc struct {
	lock    *sync.Mutex // protects next and serializes bitmap updates
	maps    []bitmap
	perDisk uint64
	next    uint64 // disk to try first
}

func mkStripeAlloc(disks []disk.Disk, off uint64, perDisk uint64) *stripeAlloc {
	maps := make([]bitmap, len(disks))
	for i, d := range disks {
		maps[i] = mkBitmap(d, off, perDisk)
	}
	return &stripeAlloc{
		lock:    new(sync.Mutex),
		maps:    maps,
		perDisk: perDisk,
		next:    0,
	}
}

func (s *stripeAlloc) ndisks() uint64 {
	return uint64(len(s.maps))
}

func (s *stripeAlloc) split(bn common.Bnum) (uint64, uint64) {
	return uint64(bn) % s.ndisks(), uint64(bn) / s.ndisks()
}

func (s *stripeAlloc) incNext() {
	s.next = (s.next + 1) % s.ndisks()
}

// AllocBlock tries each disk at most once, starting at the cursor. The
// cursor moves past every disk tried, full or not, so it ends after the disk
// that supplied the block.
func (s *stripeAlloc) AllocBlock() (common.Bnum, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for tries := uint64(0); tries < s.ndisks(); tries++ {
		d := s.next
		s.incNext()
		i, ok, err := s.maps[d].findFree(1)
		if err != nil {
			return 0, err
		}
		if !ok {
			util.DPrintf(5, "stripeAlloc: disk %d full\n", d)
			continue
		}
		if err := s.maps[d].update(i, true); err != nil {
			return 0, err
		}
		bn := common.Bnum(i*s.ndisks() + d)
		util.DPrintf(10, "stripeAlloc: disk %d local %d -> %d\n", d, i, bn)
		return bn, nil
	}
	return 0, unix.ENOSPC
}

func (s *stripeAlloc) FreeBlock(bn common.Bnum) error {
	if bn == common.NULLBNUM {
		panic("FreeBlock")
	}
	d, i := s.split(bn)
	if i == 0 {
		panic("FreeBlock: reserved local block")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.maps[d].update(i, false)
}

func (s *stripeAlloc) IsAllocated(bn common.Bnum) (bool, error) {
	d, i := s.split(bn)
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.maps[d].isSet(i)
}

func (s *stripeAlloc) NumFree() (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	free := uint64(0)
	for _, bm := range s.maps {
		used, err := bm.numSet()
		if err != nil {
			return 0, err
		}
		// local block 0 is reserved on every disk
		zero, err := bm.isSet(0)
		if err != nil {
			return 0, err
		}
		if zero {
			used--
		}
		free += s.perDisk - 1 - used
	}
	return free, nil
}

func (s *stripeAlloc) Total() uint64 {
	return (s.perDisk - 1) * s.ndisks()
}
