// Package fs serves POSIX-shaped file operations on a raidfs disk set.
//
// An FS owns the disks, the superblock, the allocators and the RAID volume.
// Operations that change the namespace (Mknod, Mkdir, Unlink, Rmdir) run
// exclusively; lookups, reads and writes run concurrently, serialized per
// inode. Updates are made in place on every disk. They are durable once
// Sync or Close returns.
package fs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/raidfs/alloc"
	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/inode"
	"github.com/mit-pdos/raidfs/lockmap"
	"github.com/mit-pdos/raidfs/raid"
	"github.com/mit-pdos/raidfs/super"
	"github.com/mit-pdos/raidfs/util"
)

// Options supply the owner and clock for new inodes. Mount completes
// Options without a clock from DefaultOptions.
type Options struct {
	Uid   uint32
	Gid   uint32
	Now   func() time.Time
	Debug uint64 // DPrintf threshold, if nonzero
}

func DefaultOptions() Options {
	return Options{
		Uid: uint32(os.Getuid()),
		Gid: uint32(os.Getgid()),
		Now: time.Now,
	}
}

type FS struct {
	sb     *super.Superblock
	disks  []disk.Disk
	ialloc *alloc.Alloc
	balloc alloc.BlockAlloc
	table  *inode.Table
	bmap   *inode.Bmap
	ns     *sync.RWMutex // namespace: exclusive for create and remove
	locks  *lockmap.LockMap
	opts   Options
}

// Mount verifies that disks form one filesystem, in superblock order, and
// returns a session on it. A rejected disk set is a configuration error;
// nothing is written to it.
func Mount(disks []disk.Disk, opts Options) (*FS, error) {
	if opts.Debug > 0 {
		util.SetDebug(opts.Debug)
	}
	if opts.Now == nil {
		def := DefaultOptions()
		opts.Now = def.Now
		if opts.Uid == 0 && opts.Gid == 0 {
			opts.Uid, opts.Gid = def.Uid, def.Gid
		}
	}
	sb, err := super.Verify(disks)
	if err != nil {
		util.Logger().WithError(err).Error("mount: disk set rejected")
		return nil, err
	}
	balloc := alloc.MkBlockAlloc(sb, disks)
	fs := &FS{
		sb:     sb,
		disks:  disks,
		ialloc: alloc.MkInodeAlloc(sb, disks),
		balloc: balloc,
		table:  inode.MkTable(sb, disks),
		bmap:   inode.MkBmap(raid.MkVolume(sb, disks), balloc),
		ns:     new(sync.RWMutex),
		locks:  lockmap.MkLockMap(),
		opts:   opts,
	}
	if err := fs.bootstrapRoot(); err != nil {
		return nil, err
	}
	util.Logger().WithFields(logrus.Fields{
		"mode":   sb.Mode,
		"ndisks": sb.NDisks,
		"inodes": sb.NInodes,
		"blocks": sb.NDataBlocks,
	}).Info("mounted")
	return fs, nil
}

// MountPaths maps the disk images at paths and mounts them.
func MountPaths(paths []string, opts Options) (*FS, error) {
	var disks []disk.Disk
	closeAll := func() {
		for _, d := range disks {
			d.Close()
		}
	}
	for _, p := range paths {
		d, err := disk.NewMmapDisk(p)
		if err != nil {
			closeAll()
			util.Logger().WithField("disk", p).WithError(err).Error("mount: cannot map image")
			return nil, err
		}
		disks = append(disks, d)
	}
	fs, err := Mount(disks, opts)
	if err != nil {
		closeAll()
		return nil, err
	}
	return fs, nil
}

func (fs *FS) now() uint64 {
	return uint64(fs.opts.Now().Unix())
}

// bootstrapRoot creates the root directory on a disk set whose inode bitmap
// does not claim inode 0.
func (fs *FS) bootstrapRoot() error {
	used, err := fs.ialloc.IsUsed(uint64(common.ROOTINUM))
	if err != nil || used {
		return err
	}
	util.DPrintf(0, "mount: initializing root directory\n")
	_, err = inode.MkRoot(fs.table, fs.ialloc, fs.bmap, fs.opts.Uid, fs.opts.Gid, fs.now())
	return err
}

// Stats describes capacity in allocatable units.
type Stats struct {
	BlockSize   uint64
	Blocks      uint64
	BlocksFree  uint64
	Inodes      uint64
	InodesFree  uint64
	MaxNameLen  uint64
	MaxFileSize uint64
}

func (fs *FS) Statfs() (*Stats, error) {
	bfree, err := fs.balloc.NumFree()
	if err != nil {
		return nil, fail("statfs", "/", err)
	}
	ifree, err := fs.ialloc.NumFree()
	if err != nil {
		return nil, fail("statfs", "/", err)
	}
	return &Stats{
		BlockSize:   common.BlockSize,
		Blocks:      fs.balloc.Total(),
		BlocksFree:  bfree,
		Inodes:      fs.sb.NInodes,
		InodesFree:  ifree,
		MaxNameLen:  common.MAXNAME - 1,
		MaxFileSize: common.MaxFileSize,
	}, nil
}

// Sync flushes every disk.
func (fs *FS) Sync() error {
	fs.ns.Lock()
	defer fs.ns.Unlock()
	for i, d := range fs.disks {
		if err := d.Barrier(); err != nil {
			return fail("sync", fmt.Sprintf("disk %d", i), err)
		}
	}
	return nil
}

// Close syncs and releases the disks. The FS must not be used afterwards.
func (fs *FS) Close() error {
	err := fs.Sync()
	for _, d := range fs.disks {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
