package raid

import (
	"bytes"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

// vote is a mirror whose reads tolerate a minority of corrupted copies.
type vote struct {
	mirror
}

// Vote returns the index of the copy that the most copies agree with. Each
// copy gets one vote for itself and one for every other copy that is byte
// identical. A later copy must have strictly more votes to win, so ties go
// to the lowest index.
func Vote(copies [][]byte) int {
	best, bestVotes := 0, 0
	for i := range copies {
		votes := 1
		for j := range copies {
			if i != j && bytes.Equal(copies[i], copies[j]) {
				votes++
			}
		}
		if votes > bestVotes {
			best, bestVotes = i, votes
		}
	}
	return best
}

func (v *vote) Read(bn common.Bnum, blk disk.Block) error {
	checkBlock(blk)
	addrs := v.Locate(bn)
	copies := make([][]byte, len(addrs))
	for i, a := range addrs {
		copies[i] = make([]byte, common.BlockSize)
		if err := v.disks[a.Disk].ReadAt(a.Off, copies[i]); err != nil {
			return err
		}
	}
	w := Vote(copies)
	if util.Debug >= 1 {
		for i := range copies {
			if !bytes.Equal(copies[i], copies[w]) {
				util.DPrintf(1, "vote: block %d disk %d disagrees with disk %d\n", bn, i, w)
			}
		}
	}
	copy(blk, copies[w])
	return nil
}
