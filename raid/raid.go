// Package raid maps logical data block numbers onto the disks of a set.
//
// Three layouts are supported. Striping places logical block b on disk
// b%n at local block b/n. Mirroring places every block at the same local
// block on all disks and reads disk 0. Voting mirrors writes the same way but
// reads every copy and returns the one most other copies agree with.
package raid

import (
	"fmt"

	"github.com/mit-pdos/raidfs/addr"
	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/super"
)

// Volume reads and writes whole logical data blocks.
type Volume interface {
	// Read fills blk, which must be common.BlockSize bytes, with block bn.
	Read(bn common.Bnum, blk disk.Block) error
	// Write stores blk as block bn.
	Write(bn common.Bnum, blk disk.Block) error
	// Locate reports every physical copy of bn.
	Locate(bn common.Bnum) []addr.Addr
}

func MkVolume(sb *super.Superblock, disks []disk.Disk) Volume {
	m := mirror{disks: disks, dataOff: sb.DataOff, perDisk: sb.PerDiskBlocks()}
	switch sb.Mode {
	case common.Striped:
		return &stripe{disks: disks, dataOff: sb.DataOff, perDisk: sb.PerDiskBlocks()}
	case common.Mirrored:
		return &m
	case common.MirroredVoting:
		return &vote{mirror: m}
	}
	panic(fmt.Sprintf("MkVolume: %v", sb.Mode))
}

func checkBlock(blk disk.Block) {
	if uint64(len(blk)) != common.BlockSize {
		panic(fmt.Errorf("buffer is not block sized (%d bytes)", len(blk)))
	}
}

type stripe struct {
	disks   []disk.Disk
	dataOff uint64
	perDisk uint64
}

func (s *stripe) translate(bn common.Bnum) addr.Addr {
	n := uint64(len(s.disks))
	local := uint64(bn) / n
	if local >= s.perDisk {
		panic(fmt.Errorf("out-of-bounds block %d", bn))
	}
	return addr.MkDataAddr(uint64(bn)%n, s.dataOff, local)
}

func (s *stripe) Locate(bn common.Bnum) []addr.Addr {
	return []addr.Addr{s.translate(bn)}
}

func (s *stripe) Read(bn common.Bnum, blk disk.Block) error {
	checkBlock(blk)
	a := s.translate(bn)
	return s.disks[a.Disk].ReadAt(a.Off, blk)
}

func (s *stripe) Write(bn common.Bnum, blk disk.Block) error {
	checkBlock(blk)
	a := s.translate(bn)
	return s.disks[a.Disk].WriteAt(a.Off, blk)
}

type mirror struct {
	disks   []disk.Disk
	dataOff uint64
	perDisk uint64
}

func (m *mirror) Locate(bn common.Bnum) []addr.Addr {
	if uint64(bn) >= m.perDisk {
		panic(fmt.Errorf("out-of-bounds block %d", bn))
	}
	addrs := make([]addr.Addr, len(m.disks))
	for i := range m.disks {
		addrs[i] = addr.MkDataAddr(uint64(i), m.dataOff, uint64(bn))
	}
	return addrs
}

func (m *mirror) Read(bn common.Bnum, blk disk.Block) error {
	checkBlock(blk)
	a := m.Locate(bn)[0]
	return m.disks[a.Disk].ReadAt(a.Off, blk)
}

func (m *mirror) Write(bn common.Bnum, blk disk.Block) error {
	checkBlock(blk)
	for _, a := range m.Locate(bn) {
		if err := m.disks[a.Disk].WriteAt(a.Off, blk); err != nil {
			return err
		}
	}
	return nil
}
