package alloc

import (
	"math/bits"

	"github.com/mit-pdos/raidfs/disk"
)

// bitmap is an on-disk bitmap of nbits bits starting at byte off of d. Bit n
// lives in byte n/8 at bit position n%8.
type bitmap struct {
	d     disk.Disk
	off   uint64
	nbits uint64
}

func mkBitmap(d disk.Disk, off uint64, nbits uint64) bitmap {
	return bitmap{d: d, off: off, nbits: nbits}
}

func popCnt(b byte) uint64 {
	return uint64(bits.OnesCount8(b))
}

func (bm bitmap) nbytes() uint64 {
	return (bm.nbits + 7) / 8
}

func (bm bitmap) checkBit(n uint64) {
	if n >= bm.nbits {
		panic("bitmap: bit out of range")
	}
}

func (bm bitmap) load() ([]byte, error) {
	buf := make([]byte, bm.nbytes())
	err := bm.d.ReadAt(bm.off, buf)
	return buf, err
}

func (bm bitmap) isSet(n uint64) (bool, error) {
	bm.checkBit(n)
	b := make([]byte, 1)
	if err := bm.d.ReadAt(bm.off+n/8, b); err != nil {
		return false, err
	}
	return b[0]&(1<<(n%8)) != 0, nil
}

func (bm bitmap) update(n uint64, set bool) error {
	bm.checkBit(n)
	b := make([]byte, 1)
	if err := bm.d.ReadAt(bm.off+n/8, b); err != nil {
		return err
	}
	if set {
		b[0] = b[0] | (1 << (n % 8))
	} else {
		b[0] = b[0] & ^(1 << (n % 8))
	}
	return bm.d.WriteAt(bm.off+n/8, b)
}

// findFree returns the first clear bit at or after start.
func (bm bitmap) findFree(start uint64) (uint64, bool, error) {
	buf, err := bm.load()
	if err != nil {
		return 0, false, err
	}
	for n := start; n < bm.nbits; n++ {
		if buf[n/8]&(1<<(n%8)) == 0 {
			return n, true, nil
		}
	}
	return 0, false, nil
}

func (bm bitmap) numSet() (uint64, error) {
	buf, err := bm.load()
	if err != nil {
		return 0, err
	}
	n := uint64(0)
	for i, b := range buf {
		if uint64(i) == bm.nbytes()-1 && bm.nbits%8 != 0 {
			// ignore padding bits past nbits
			b = b & byte((1<<(bm.nbits%8))-1)
		}
		n += popCnt(b)
	}
	return n, nil
}
