package inode

import (
	"github.com/tchajed/marshal"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/alloc"
	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/raid"
	"github.com/mit-pdos/raidfs/util"
)

// NFILEBLOCKS is the number of file blocks an inode can address.
const NFILEBLOCKS uint64 = common.NDIRECT + common.NINDIRECT

// Bmap maps file block indices to logical data blocks, allocating data
// blocks and the indirect block on demand.
type Bmap struct {
	vol    raid.Volume
	balloc alloc.BlockAlloc
}

func MkBmap(vol raid.Volume, balloc alloc.BlockAlloc) *Bmap {
	return &Bmap{vol: vol, balloc: balloc}
}

func encodeIndirect(bns []common.Bnum) disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	for _, bn := range bns {
		enc.PutInt(uint64(bn))
	}
	return enc.Finish()
}

func decodeIndirect(blk disk.Block) []common.Bnum {
	bns := make([]common.Bnum, common.NINDIRECT)
	dec := marshal.NewDec(blk)
	for i := range bns {
		bns[i] = common.Bnum(dec.GetInt())
	}
	return bns
}

func (m *Bmap) Read(bn common.Bnum, blk disk.Block) error {
	return m.vol.Read(bn, blk)
}

func (m *Bmap) Write(bn common.Bnum, blk disk.Block) error {
	return m.vol.Write(bn, blk)
}

func (m *Bmap) readIndirect(ip *Inode) ([]common.Bnum, error) {
	blk := make(disk.Block, common.BlockSize)
	if err := m.vol.Read(ip.Blocks[common.INDIRECT], blk); err != nil {
		return nil, err
	}
	return decodeIndirect(blk), nil
}

// allocZeroed allocates a data block and clears its previous contents.
func (m *Bmap) allocZeroed() (common.Bnum, error) {
	bn, err := m.balloc.AllocBlock()
	if err != nil {
		return common.NULLBNUM, err
	}
	if err := m.vol.Write(bn, make(disk.Block, common.BlockSize)); err != nil {
		if ferr := m.balloc.FreeBlock(bn); ferr != nil {
			util.DPrintf(0, "allocZeroed: free %d: %v\n", bn, ferr)
		}
		return common.NULLBNUM, err
	}
	return bn, nil
}

// Lookup returns the data block holding file block fbn. ok is false for a
// hole.
func (m *Bmap) Lookup(ip *Inode, fbn uint64) (bn common.Bnum, ok bool, err error) {
	if fbn < common.NDIRECT {
		bn = ip.Blocks[fbn]
		return bn, bn != common.NULLBNUM, nil
	}
	if fbn >= NFILEBLOCKS {
		return common.NULLBNUM, false, nil
	}
	if ip.Blocks[common.INDIRECT] == common.NULLBNUM {
		return common.NULLBNUM, false, nil
	}
	bns, err := m.readIndirect(ip)
	if err != nil {
		return common.NULLBNUM, false, err
	}
	bn = bns[fbn-common.NDIRECT]
	return bn, bn != common.NULLBNUM, nil
}

// Alloc returns the data block holding file block fbn, allocating a zeroed
// block if there is none. It may modify ip's address list; the caller
// writes ip back.
func (m *Bmap) Alloc(ip *Inode, fbn uint64) (common.Bnum, error) {
	if fbn >= NFILEBLOCKS {
		return common.NULLBNUM, unix.EFBIG
	}
	if fbn < common.NDIRECT {
		if ip.Blocks[fbn] == common.NULLBNUM {
			bn, err := m.allocZeroed()
			if err != nil {
				return common.NULLBNUM, err
			}
			ip.Blocks[fbn] = bn
		}
		return ip.Blocks[fbn], nil
	}
	if ip.Blocks[common.INDIRECT] == common.NULLBNUM {
		bn, err := m.allocZeroed()
		if err != nil {
			return common.NULLBNUM, err
		}
		util.DPrintf(5, "Alloc: inode %d indirect block %d\n", ip.Inum, bn)
		ip.Blocks[common.INDIRECT] = bn
	}
	bns, err := m.readIndirect(ip)
	if err != nil {
		return common.NULLBNUM, err
	}
	i := fbn - common.NDIRECT
	if bns[i] == common.NULLBNUM {
		bn, err := m.allocZeroed()
		if err != nil {
			return common.NULLBNUM, err
		}
		bns[i] = bn
		if err := m.vol.Write(ip.Blocks[common.INDIRECT], encodeIndirect(bns)); err != nil {
			return common.NULLBNUM, err
		}
	}
	return bns[i], nil
}

// Release frees the blocks ip gained since its address list was orig and
// restores orig. It undoes allocations of a write that stored nothing.
func (m *Bmap) Release(ip *Inode, orig [common.NBLOCKS]common.Bnum) error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for i := uint64(0); i < common.NDIRECT; i++ {
		if ip.Blocks[i] != orig[i] {
			record(m.balloc.FreeBlock(ip.Blocks[i]))
		}
	}
	if ind := ip.Blocks[common.INDIRECT]; ind != orig[common.INDIRECT] {
		bns, err := m.readIndirect(ip)
		record(err)
		for _, bn := range bns {
			if bn != common.NULLBNUM {
				record(m.balloc.FreeBlock(bn))
			}
		}
		record(m.balloc.FreeBlock(ind))
	}
	ip.Blocks = orig
	return first
}

// Free releases every data block of ip, including the indirect block and
// the blocks it references, and truncates ip to zero size.
func (m *Bmap) Free(ip *Inode) error {
	for i := uint64(0); i < common.NDIRECT; i++ {
		if ip.Blocks[i] != common.NULLBNUM {
			if err := m.balloc.FreeBlock(ip.Blocks[i]); err != nil {
				return err
			}
			ip.Blocks[i] = common.NULLBNUM
		}
	}
	if ind := ip.Blocks[common.INDIRECT]; ind != common.NULLBNUM {
		bns, err := m.readIndirect(ip)
		if err != nil {
			return err
		}
		for _, bn := range bns {
			if bn != common.NULLBNUM {
				if err := m.balloc.FreeBlock(bn); err != nil {
					return err
				}
			}
		}
		if err := m.balloc.FreeBlock(ind); err != nil {
			return err
		}
		ip.Blocks[common.INDIRECT] = common.NULLBNUM
	}
	ip.Size = 0
	return nil
}
