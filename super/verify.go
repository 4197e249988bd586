package super

import (
	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/util"
)

func mismatch(i int, what string, expected, found interface{}) error {
	err := errors.Newf(errors.CodeInvalidConfig, "disk %d: %s mismatch", i, what)
	return errors.WithContextMap(err, map[string]interface{}{
		"disk":     i,
		"expected": expected,
		"found":    found,
	})
}

// check validates a superblock on its own, without reference to a disk set.
func (sb *Superblock) check() error {
	if sb.Magic != common.MAGIC {
		return errors.Newf(errors.CodeInvalidConfig, "bad magic %#x", sb.Magic)
	}
	if !sb.Mode.Valid() {
		return errors.Newf(errors.CodeInvalidConfig, "unknown raid mode %d", uint64(sb.Mode))
	}
	if sb.NDisks < common.MINDISKS || sb.NDisks > common.MAXDISKS {
		return errors.Newf(errors.CodeInvalidConfig, "unsupported disk count %d", sb.NDisks)
	}
	if sb.NInodes == 0 || sb.NDataBlocks == 0 {
		return errors.New(errors.CodeInvalidConfig, "empty geometry")
	}
	expect := MkSuperblock(sb.Mode, sb.NDisks, sb.NInodes, sb.NDataBlocks, sb.UUID)
	if sb.IBitmapOff != expect.IBitmapOff || sb.DBitmapOff != expect.DBitmapOff ||
		sb.ITableOff != expect.ITableOff || sb.DataOff != expect.DataOff {
		return errors.New(errors.CodeInvalidConfig, "region offsets inconsistent with geometry")
	}
	return nil
}

// Verify reads the superblock of every disk in the set and checks that they
// describe the same filesystem and that the set has the recorded number of
// disks. Any mismatch is a fatal configuration error. It returns disk 0's
// superblock, which is authoritative.
func Verify(disks []disk.Disk) (*Superblock, error) {
	if len(disks) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "no disks")
	}
	sb, err := Read(disks[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "read superblock of disk 0")
	}
	if err := sb.check(); err != nil {
		return nil, err
	}
	if uint64(len(disks)) != sb.NDisks {
		return nil, mismatch(0, "disk count", sb.NDisks, len(disks))
	}
	for i, d := range disks {
		if d.Size() < sb.ImageSize() {
			return nil, mismatch(i, "image size", sb.ImageSize(), d.Size())
		}
		if i == 0 {
			continue
		}
		other, err := Read(d)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "read superblock of disk %d", i)
		}
		if other.Magic != sb.Magic {
			return nil, mismatch(i, "magic", sb.Magic, other.Magic)
		}
		if other.NDisks != sb.NDisks {
			return nil, mismatch(i, "disk count", sb.NDisks, other.NDisks)
		}
		if other.Mode != sb.Mode {
			return nil, mismatch(i, "raid mode", sb.Mode.String(), other.Mode.String())
		}
		if other.UUID != sb.UUID {
			return nil, mismatch(i, "array uuid", sb.UUID.String(), other.UUID.String())
		}
		if *other != *sb {
			return nil, mismatch(i, "geometry", sb, other)
		}
	}
	util.DPrintf(1, "Verify: %d disks mode %v ninodes %d nblocks %d\n",
		sb.NDisks, sb.Mode, sb.NInodes, sb.NDataBlocks)
	return sb, nil
}
