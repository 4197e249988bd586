// Package super describes the on-disk geometry of a raidfs disk set.
//
// Every disk carries an identical superblock in block 0, followed by the
// inode bitmap, the data bitmap, the inode table and the data region:
//
//	+----+---------+---------+--------+--------------------------+
//	| SB | IBITMAP | DBITMAP | INODES |       DATA BLOCKS        |
//	+----+---------+---------+--------+--------------------------+
//
// All region offsets are block aligned. The inode table holds one block per
// inode. Under striping each disk holds its own slice of the data region and
// its own data bitmap; otherwise every disk holds the whole data region.
package super

import (
	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

const uuidOff uint64 = (10 + common.MAXDISKS) * 8

type Superblock struct {
	NInodes     uint64
	NDataBlocks uint64
	IBitmapOff  uint64
	DBitmapOff  uint64
	ITableOff   uint64
	DataOff     uint64
	Mode        common.Mode
	NDisks      uint64
	DiskIds     [common.MAXDISKS]uint64
	Magic       uint64
	UUID        uuid.UUID
}

func blockAlign(n uint64) uint64 {
	return util.RoundUp(n, common.BlockSize) * common.BlockSize
}

// PerDisk is the number of data blocks each disk holds for the given
// geometry.
func PerDisk(mode common.Mode, ndisks uint64, nblocks uint64) uint64 {
	if mode == common.Striped {
		return util.RoundUp(nblocks, ndisks)
	}
	return nblocks
}

// MkSuperblock lays out a disk set. The caller is responsible for rounding
// the inode and block counts.
func MkSuperblock(mode common.Mode, ndisks uint64, ninodes uint64, nblocks uint64, id uuid.UUID) *Superblock {
	sb := &Superblock{
		NInodes:     ninodes,
		NDataBlocks: nblocks,
		Mode:        mode,
		NDisks:      ndisks,
		Magic:       common.MAGIC,
		UUID:        id,
	}
	perDisk := PerDisk(mode, ndisks, nblocks)
	sb.IBitmapOff = common.BlockSize
	sb.DBitmapOff = sb.IBitmapOff + blockAlign(util.RoundUp(ninodes, 8))
	sb.ITableOff = sb.DBitmapOff + blockAlign(util.RoundUp(perDisk, 8))
	sb.DataOff = sb.ITableOff + ninodes*common.BlockSize
	for i := uint64(0); i < ndisks && i < common.MAXDISKS; i++ {
		sb.DiskIds[i] = i
	}
	return sb
}

func (sb *Superblock) PerDiskBlocks() uint64 {
	return PerDisk(sb.Mode, sb.NDisks, sb.NDataBlocks)
}

// ImageSize is the number of bytes each disk image must provide.
func (sb *Superblock) ImageSize() uint64 {
	return sb.DataOff + sb.PerDiskBlocks()*common.BlockSize
}

func (sb *Superblock) IBitmapLen() uint64 {
	return util.RoundUp(sb.NInodes, 8)
}

func (sb *Superblock) DBitmapLen() uint64 {
	return util.RoundUp(sb.PerDiskBlocks(), 8)
}

// Inum2Off is the byte offset of inode inum in the inode table.
func (sb *Superblock) Inum2Off(inum common.Inum) uint64 {
	return sb.ITableOff + uint64(inum)*common.BlockSize
}

func (sb *Superblock) Encode() disk.Block {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt(sb.NInodes)
	enc.PutInt(sb.NDataBlocks)
	enc.PutInt(sb.IBitmapOff)
	enc.PutInt(sb.DBitmapOff)
	enc.PutInt(sb.ITableOff)
	enc.PutInt(sb.DataOff)
	enc.PutInt(uint64(sb.Mode))
	enc.PutInt(sb.NDisks)
	for _, id := range sb.DiskIds {
		enc.PutInt(id)
	}
	enc.PutInt(sb.Magic)
	blk := enc.Finish()
	copy(blk[uuidOff:], sb.UUID[:])
	return blk
}

func Decode(blk disk.Block) *Superblock {
	sb := &Superblock{}
	dec := marshal.NewDec(blk)
	sb.NInodes = dec.GetInt()
	sb.NDataBlocks = dec.GetInt()
	sb.IBitmapOff = dec.GetInt()
	sb.DBitmapOff = dec.GetInt()
	sb.ITableOff = dec.GetInt()
	sb.DataOff = dec.GetInt()
	sb.Mode = common.Mode(dec.GetInt())
	sb.NDisks = dec.GetInt()
	for i := range sb.DiskIds {
		sb.DiskIds[i] = dec.GetInt()
	}
	sb.Magic = dec.GetInt()
	copy(sb.UUID[:], blk[uuidOff:uuidOff+16])
	return sb
}

func Read(d disk.Disk) (*Superblock, error) {
	blk := make(disk.Block, common.BlockSize)
	if err := d.ReadAt(0, blk); err != nil {
		return nil, err
	}
	return Decode(blk), nil
}

func (sb *Superblock) Write(d disk.Disk) error {
	return d.WriteAt(0, sb.Encode())
}
