// Package mkfs lays out an empty raidfs filesystem on a set of disks.
package mkfs

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/raidfs/alloc"
	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/inode"
	"github.com/mit-pdos/raidfs/raid"
	"github.com/mit-pdos/raidfs/super"
	"github.com/mit-pdos/raidfs/util"
)

// zeroChunk is how much of an image Format clears per write.
const zeroChunk uint64 = 64 * common.BlockSize

func zero(d disk.Disk, size uint64) error {
	buf := make([]byte, zeroChunk)
	for off := uint64(0); off < size; off += zeroChunk {
		n := util.Min(zeroChunk, size-off)
		if err := d.WriteAt(off, buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// Format writes the superblock, empty bitmaps, an empty inode table and the
// root directory to every disk. Each disk must be at least the layout size.
func Format(cfg *Config, disks []disk.Disk) (*super.Superblock, error) {
	if err := cfg.Normalize(len(disks)); err != nil {
		return nil, err
	}
	sb := super.MkSuperblock(cfg.Mode, uint64(len(disks)), cfg.NumInodes, cfg.NumDataBlocks, uuid.New())
	for i, d := range disks {
		if d.Size() < sb.ImageSize() {
			return nil, errors.WithContextMap(
				errors.New(errors.CodeInvalidConfig, "disk image too small"),
				map[string]interface{}{"disk": i, "expected": sb.ImageSize(), "found": d.Size()})
		}
	}
	for i, d := range disks {
		if err := zero(d, sb.ImageSize()); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "clear disk %d", i)
		}
		if err := sb.Write(d); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "write superblock to disk %d", i)
		}
	}

	balloc := alloc.MkBlockAlloc(sb, disks)
	bmap := inode.MkBmap(raid.MkVolume(sb, disks), balloc)
	now := uint64(time.Now().Unix())
	_, err := inode.MkRoot(inode.MkTable(sb, disks), alloc.MkInodeAlloc(sb, disks), bmap, cfg.Uid, cfg.Gid, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "write root directory")
	}
	for i, d := range disks {
		if err := d.Barrier(); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "flush disk %d", i)
		}
	}
	util.Logger().WithFields(logrus.Fields{
		"mode":   sb.Mode,
		"ndisks": sb.NDisks,
		"inodes": sb.NInodes,
		"blocks": sb.NDataBlocks,
		"size":   sb.ImageSize(),
	}).Info("formatted")
	return sb, nil
}

// FormatPaths formats the image files named by cfg.Disks. Each file must
// already be at least the layout size; it is truncated to exactly that
// size.
func FormatPaths(cfg *Config) (*super.Superblock, error) {
	if err := cfg.Normalize(len(cfg.Disks)); err != nil {
		return nil, err
	}
	need := super.MkSuperblock(cfg.Mode, uint64(len(cfg.Disks)), cfg.NumInodes, cfg.NumDataBlocks, uuid.Nil).ImageSize()
	var disks []disk.Disk
	defer func() {
		for _, d := range disks {
			d.Close()
		}
	}()
	for i, p := range cfg.Disks {
		st, err := os.Stat(p)
		if err != nil {
			return nil, errors.WithContext(errors.Wrap(err, errors.CodeInvalidConfig, "stat disk image"), "disk", p)
		}
		if uint64(st.Size()) < need {
			return nil, errors.WithContextMap(
				errors.New(errors.CodeInvalidConfig, "disk image too small"),
				map[string]interface{}{"disk": p, "expected": need, "found": st.Size()})
		}
		if err := os.Truncate(p, int64(need)); err != nil {
			return nil, errors.WithContext(errors.Wrap(err, errors.CodeInternal, "truncate disk image"), "disk", p)
		}
		d, err := disk.NewFileDisk(p)
		if err != nil {
			return nil, errors.WithContext(errors.Wrap(err, errors.CodeInternal, "open disk image"), "disk", p)
		}
		util.DPrintf(1, "disk %d: %s\n", i, p)
		disks = append(disks, d)
	}
	return Format(cfg, disks)
}
