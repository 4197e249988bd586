package common

import (
	"fmt"
)

// BlockSize is the unit of every on-disk region: inodes are padded to one
// block and data is read and written a block at a time.
const BlockSize uint64 = 512

const (
	NDIRECT   uint64 = 10          // direct block slots per inode
	INDIRECT  uint64 = NDIRECT     // slot holding the indirect block
	NBLOCKS   uint64 = NDIRECT + 1 // length of an inode's address list
	BNUMSZ    uint64 = 8           // on-disk size of a block number
	NINDIRECT uint64 = BlockSize / BNUMSZ

	// MaxFileSize is the direct plus single-indirect addressing capacity.
	MaxFileSize uint64 = (NDIRECT + NINDIRECT) * BlockSize

	MAXNAME  uint64 = 28 // name field, including the terminator
	DIRENTSZ uint64 = 8 + MAXNAME
	NDIRENT  uint64 = BlockSize / DIRENTSZ

	MAXDISKS uint64 = 10
	MINDISKS uint64 = 2

	MAGIC uint64 = 0x12345678
)

type Inum uint64
type Bnum uint64

const (
	ROOTINUM Inum = 0
	NULLBNUM Bnum = 0
)

// Mode is the RAID level tag stored in the superblock.
type Mode uint64

const (
	Striped        Mode = 0
	Mirrored       Mode = 1
	MirroredVoting Mode = 2
)

func (m Mode) Valid() bool {
	return m <= MirroredVoting
}

func (m Mode) String() string {
	switch m {
	case Striped:
		return "0"
	case Mirrored:
		return "1"
	case MirroredVoting:
		return "1v"
	}
	return fmt.Sprintf("mode(%d)", uint64(m))
}

// ParseMode accepts the formatter's mode tokens: "0", "1" and "1v".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "0":
		return Striped, true
	case "1":
		return Mirrored, true
	case "1v":
		return MirroredVoting, true
	}
	return 0, false
}
