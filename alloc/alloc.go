package alloc

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

// Alloc hands out numbers from a bitmap that is replicated on every disk of
// the set. Disk 0's copy is the source of truth for finding a free number;
// allocation and freeing update every copy.
//
// Numbers below start are never handed out.
type Alloc struct {
	lock  *sync.Mutex // serializes scans and updates
	maps  []bitmap
	start uint64
	len   uint64
}

func MkAlloc(disks []disk.Disk, off uint64, nbits uint64, start uint64) *Alloc {
	maps := make([]bitmap, len(disks))
	for i, d := range disks {
		maps[i] = mkBitmap(d, off, nbits)
	}
	return &Alloc{
		lock:  new(sync.Mutex),
		maps:  maps,
		start: start,
		len:   nbits,
	}
}

func (a *Alloc) setAll(n uint64, set bool) error {
	for _, bm := range a.maps {
		if err := bm.update(n, set); err != nil {
			return err
		}
	}
	return nil
}

// AllocNum returns the lowest free number, or ENOSPC.
func (a *Alloc) AllocNum() (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	num, ok, err := a.maps[0].findFree(a.start)
	if err != nil {
		return 0, err
	}
	if !ok {
		util.DPrintf(5, "AllocNum: no free bit in %d\n", a.len)
		return 0, unix.ENOSPC
	}
	if err := a.setAll(num, true); err != nil {
		return 0, err
	}
	util.DPrintf(10, "AllocNum: %d\n", num)
	return num, nil
}

func (a *Alloc) FreeNum(num uint64) error {
	if num < a.start {
		panic("FreeNum")
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	util.DPrintf(10, "FreeNum: %d\n", num)
	return a.setAll(num, false)
}

// MarkUsed sets num without searching, e.g. for the root inode at format
// time.
func (a *Alloc) MarkUsed(num uint64) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.setAll(num, true)
}

func (a *Alloc) IsUsed(num uint64) (bool, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.maps[0].isSet(num)
}

// NumFree counts the free numbers at or above start.
func (a *Alloc) NumFree() (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	used, err := a.maps[0].numSet()
	if err != nil {
		return 0, err
	}
	for n := uint64(0); n < a.start && n < a.len; n++ {
		set, err := a.maps[0].isSet(n)
		if err != nil {
			return 0, err
		}
		if set {
			used--
		}
	}
	return a.len - a.start - used, nil
}
