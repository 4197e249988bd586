package addr

import (
	"fmt"

	"github.com/mit-pdos/raidfs/common"
)

// Addr identifies a block-sized region on one disk of the set.
//
// Disk is the index of the disk in the set and Off is the byte offset of the
// block within that disk's image.
type Addr struct {
	Disk uint64
	Off  uint64
}

func MkAddr(disk uint64, off uint64) Addr {
	return Addr{Disk: disk, Off: off}
}

// MkDataAddr locates local data block n of a disk whose data region starts
// at byte dataStart.
func MkDataAddr(disk uint64, dataStart uint64, n uint64) Addr {
	return Addr{Disk: disk, Off: dataStart + n*common.BlockSize}
}

func (a Addr) String() string {
	return fmt.Sprintf("d%d@%d", a.Disk, a.Off)
}
