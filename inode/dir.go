package inode

import (
	"bytes"

	"github.com/tchajed/marshal"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

// Dirent is one directory slot. A slot whose Inum is 0 is free, so a
// directory never names the root inode.
type Dirent struct {
	Inum common.Inum
	Name string
}

// CheckName rejects names that do not fit in a slot with their terminator.
func CheckName(name string) error {
	if name == "" {
		return unix.EINVAL
	}
	if uint64(len(name)) >= common.MAXNAME {
		return unix.ENAMETOOLONG
	}
	return nil
}

func encodeDirent(de Dirent) []byte {
	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutInt(uint64(de.Inum))
	b := enc.Finish()
	copy(b[8:], de.Name)
	return b
}

func decodeDirent(b []byte) Dirent {
	dec := marshal.NewDec(b)
	inum := common.Inum(dec.GetInt())
	name := b[8:common.DIRENTSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Dirent{Inum: inum, Name: string(name)}
}

func direntOff(slot uint64) uint64 {
	return slot * common.DIRENTSZ
}

// scanDir calls f on every slot of every allocated direct block of dip until
// f returns true. f may modify the block, in which case it must also return
// dirty so the block is written back. Directories never use the indirect
// block.
func (m *Bmap) scanDir(dip *Inode, f func(blk disk.Block, slot uint64) (stop bool, dirty bool)) (bool, error) {
	blk := make(disk.Block, common.BlockSize)
	for i := uint64(0); i < common.NDIRECT; i++ {
		bn := dip.Blocks[i]
		if bn == common.NULLBNUM {
			continue
		}
		if err := m.vol.Read(bn, blk); err != nil {
			return false, err
		}
		for slot := uint64(0); slot < common.NDIRENT; slot++ {
			stop, dirty := f(blk, slot)
			if dirty {
				if err := m.vol.Write(bn, blk); err != nil {
					return false, err
				}
			}
			if stop {
				return true, nil
			}
		}
	}
	return false, nil
}

func slotEntry(blk disk.Block, slot uint64) Dirent {
	off := direntOff(slot)
	return decodeDirent(blk[off : off+common.DIRENTSZ])
}

// DirLookup finds name in dip. The first match wins.
func (m *Bmap) DirLookup(dip *Inode, name string) (common.Inum, bool, error) {
	var inum common.Inum
	found, err := m.scanDir(dip, func(blk disk.Block, slot uint64) (bool, bool) {
		de := slotEntry(blk, slot)
		if de.Inum != 0 && de.Name == name {
			inum = de.Inum
			return true, false
		}
		return false, false
	})
	return inum, found, err
}

// DirInsert stores de in the first free slot of dip, growing dip by one
// direct block if every allocated block is full. It fails with ENOSPC when
// all direct blocks are in use or no data block is free. The caller writes
// dip back.
func (m *Bmap) DirInsert(dip *Inode, de Dirent) error {
	if err := CheckName(de.Name); err != nil {
		return err
	}
	ent := encodeDirent(de)
	done, err := m.scanDir(dip, func(blk disk.Block, slot uint64) (bool, bool) {
		if slotEntry(blk, slot).Inum != 0 {
			return false, false
		}
		copy(blk[direntOff(slot):], ent)
		return true, true
	})
	if err != nil || done {
		return err
	}
	for i := uint64(0); i < common.NDIRECT; i++ {
		if dip.Blocks[i] != common.NULLBNUM {
			continue
		}
		bn, err := m.balloc.AllocBlock()
		if err != nil {
			return err
		}
		blk := make(disk.Block, common.BlockSize)
		copy(blk, ent)
		if err := m.vol.Write(bn, blk); err != nil {
			if ferr := m.balloc.FreeBlock(bn); ferr != nil {
				util.DPrintf(0, "DirInsert: free %d: %v\n", bn, ferr)
			}
			return err
		}
		dip.Blocks[i] = bn
		dip.Size += common.BlockSize
		util.DPrintf(5, "DirInsert: dir %d grows to %d bytes\n", dip.Inum, dip.Size)
		return nil
	}
	return unix.ENOSPC
}

// DirRemove clears the slot naming name. Emptied blocks stay allocated and
// the directory keeps its size.
func (m *Bmap) DirRemove(dip *Inode, name string) (bool, error) {
	return m.scanDir(dip, func(blk disk.Block, slot uint64) (bool, bool) {
		de := slotEntry(blk, slot)
		if de.Inum == 0 || de.Name != name {
			return false, false
		}
		off := direntOff(slot)
		copy(blk[off:off+common.DIRENTSZ], make([]byte, common.DIRENTSZ))
		return true, true
	})
}

// DirList returns the used slots of dip in on-disk order.
func (m *Bmap) DirList(dip *Inode) ([]Dirent, error) {
	var ents []Dirent
	_, err := m.scanDir(dip, func(blk disk.Block, slot uint64) (bool, bool) {
		de := slotEntry(blk, slot)
		if de.Inum != 0 && de.Name != "." && de.Name != ".." {
			ents = append(ents, de)
		}
		return false, false
	})
	return ents, err
}

func (m *Bmap) DirIsEmpty(dip *Inode) (bool, error) {
	ents, err := m.DirList(dip)
	if err != nil {
		return false, err
	}
	return len(ents) == 0, nil
}

// InitDir writes the "." and ".." entries of a directory's first block.
// Both name the root inode, so they occupy free slots and are never
// returned by DirList.
func InitDir(blk disk.Block) {
	copy(blk[direntOff(0):], encodeDirent(Dirent{Inum: common.ROOTINUM, Name: "."}))
	copy(blk[direntOff(1):], encodeDirent(Dirent{Inum: common.ROOTINUM, Name: ".."}))
}
