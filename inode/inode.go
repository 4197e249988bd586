// Package inode implements inode records, the inode table, file block
// addressing and directory entries on top of the RAID volume.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/super"
	"github.com/mit-pdos/raidfs/util"
)

// Inode is the in-memory copy of one inode record. Blocks holds NDIRECT
// direct block numbers followed by the indirect block number; NULLBNUM marks
// an empty slot.
type Inode struct {
	Inum   common.Inum
	Mode   uint32
	Uid    uint32
	Gid    uint32
	Size   uint64
	Nlinks uint64
	Atime  uint64
	Mtime  uint64
	Ctime  uint64
	Blocks [common.NBLOCKS]common.Bnum
}

func (ip *Inode) String() string {
	return fmt.Sprintf("# %d mode %o sz %d nl %d blks %v", ip.Inum, ip.Mode, ip.Size,
		ip.Nlinks, ip.Blocks)
}

func (ip *Inode) IsDir() bool {
	return ip.Mode&unix.S_IFMT == unix.S_IFDIR
}

func (ip *Inode) Encode() disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt(uint64(ip.Inum))
	enc.PutInt(uint64(ip.Mode))
	enc.PutInt(uint64(ip.Uid))
	enc.PutInt(uint64(ip.Gid))
	enc.PutInt(ip.Size)
	enc.PutInt(ip.Nlinks)
	enc.PutInt(ip.Atime)
	enc.PutInt(ip.Mtime)
	enc.PutInt(ip.Ctime)
	for _, bn := range ip.Blocks {
		enc.PutInt(uint64(bn))
	}
	return enc.Finish()
}

func Decode(blk disk.Block) *Inode {
	ip := &Inode{}
	dec := marshal.NewDec(blk)
	ip.Inum = common.Inum(dec.GetInt())
	ip.Mode = uint32(dec.GetInt())
	ip.Uid = uint32(dec.GetInt())
	ip.Gid = uint32(dec.GetInt())
	ip.Size = dec.GetInt()
	ip.Nlinks = dec.GetInt()
	ip.Atime = dec.GetInt()
	ip.Mtime = dec.GetInt()
	ip.Ctime = dec.GetInt()
	for i := range ip.Blocks {
		ip.Blocks[i] = common.Bnum(dec.GetInt())
	}
	return ip
}

// Table reads inodes from disk 0 and writes them to every disk; inode
// metadata is mirrored in every RAID mode.
type Table struct {
	sb    *super.Superblock
	disks []disk.Disk
}

func MkTable(sb *super.Superblock, disks []disk.Disk) *Table {
	return &Table{sb: sb, disks: disks}
}

func (t *Table) checkInum(inum common.Inum) {
	if uint64(inum) >= t.sb.NInodes {
		panic(fmt.Errorf("inum %d out of range", inum))
	}
}

func (t *Table) Get(inum common.Inum) (*Inode, error) {
	t.checkInum(inum)
	blk := make(disk.Block, common.BlockSize)
	if err := t.disks[0].ReadAt(t.sb.Inum2Off(inum), blk); err != nil {
		return nil, err
	}
	ip := Decode(blk)
	ip.Inum = inum
	return ip, nil
}

func (t *Table) Put(ip *Inode) error {
	t.checkInum(ip.Inum)
	util.DPrintf(10, "Put %v\n", ip)
	blk := ip.Encode()
	for _, d := range t.disks {
		if err := d.WriteAt(t.sb.Inum2Off(ip.Inum), blk); err != nil {
			return err
		}
	}
	return nil
}
