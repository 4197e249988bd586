package inode

import (
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/alloc"
	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

// MkRoot claims inode 0 and writes it as a directory whose first block
// holds the dot entries.
func MkRoot(t *Table, ialloc *alloc.Alloc, m *Bmap, uid, gid uint32, now uint64) (*Inode, error) {
	if err := ialloc.MarkUsed(uint64(common.ROOTINUM)); err != nil {
		return nil, err
	}
	bn := common.NULLBNUM
	undo := func(err error) (*Inode, error) {
		if bn != common.NULLBNUM {
			if ferr := m.balloc.FreeBlock(bn); ferr != nil {
				util.DPrintf(0, "MkRoot: free %d: %v\n", bn, ferr)
			}
		}
		if ferr := ialloc.FreeNum(uint64(common.ROOTINUM)); ferr != nil {
			util.DPrintf(0, "MkRoot: free root inode: %v\n", ferr)
		}
		return nil, err
	}
	bn, err := m.balloc.AllocBlock()
	if err != nil {
		bn = common.NULLBNUM
		return undo(err)
	}
	blk := make(disk.Block, common.BlockSize)
	InitDir(blk)
	if err := m.vol.Write(bn, blk); err != nil {
		return undo(err)
	}
	ip := &Inode{
		Inum:   common.ROOTINUM,
		Mode:   unix.S_IFDIR | 0755,
		Uid:    uid,
		Gid:    gid,
		Size:   common.BlockSize,
		Nlinks: 2,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}
	ip.Blocks[0] = bn
	if err := t.Put(ip); err != nil {
		return undo(err)
	}
	return ip, nil
}
