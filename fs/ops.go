package fs

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/inode"
	"github.com/mit-pdos/raidfs/util"
)

// Attr is the stat information of one inode.
type Attr struct {
	Inum   common.Inum
	Mode   uint32
	Uid    uint32
	Gid    uint32
	Size   uint64
	Nlinks uint64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

func mkAttr(ip *inode.Inode) *Attr {
	return &Attr{
		Inum:   ip.Inum,
		Mode:   ip.Mode,
		Uid:    ip.Uid,
		Gid:    ip.Gid,
		Size:   ip.Size,
		Nlinks: ip.Nlinks,
		Atime:  time.Unix(int64(ip.Atime), 0),
		Mtime:  time.Unix(int64(ip.Mtime), 0),
		Ctime:  time.Unix(int64(ip.Ctime), 0),
	}
}

func (a *Attr) IsDir() bool {
	return a.Mode&unix.S_IFMT == unix.S_IFDIR
}

func (fs *FS) Getattr(p string) (*Attr, error) {
	fs.ns.RLock()
	defer fs.ns.RUnlock()
	inum, err := fs.namei(p)
	if err != nil {
		return nil, fail("getattr", p, err)
	}
	fs.locks.Acquire(inum)
	defer fs.locks.Release(inum)
	ip, err := fs.table.Get(inum)
	if err != nil {
		return nil, fail("getattr", p, err)
	}
	return mkAttr(ip), nil
}

// create makes a new inode with the given mode and links it into its
// parent. If the entry cannot be added the inode is released again.
func (fs *FS) create(p string, mode uint32) (common.Inum, error) {
	fs.ns.Lock()
	defer fs.ns.Unlock()
	dir, name, err := splitPath(p)
	if err != nil {
		return 0, err
	}
	dip, err := fs.lookupParent(dir)
	if err != nil {
		return 0, err
	}
	if _, ok, err := fs.bmap.DirLookup(dip, name); err != nil {
		return 0, err
	} else if ok {
		return 0, unix.EEXIST
	}

	n, err := fs.ialloc.AllocNum()
	if err != nil {
		return 0, err
	}
	now := fs.now()
	ip := &inode.Inode{
		Inum:   common.Inum(n),
		Mode:   mode,
		Uid:    fs.opts.Uid,
		Gid:    fs.opts.Gid,
		Nlinks: 1,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
	}
	if err := fs.table.Put(ip); err != nil {
		if ferr := fs.ialloc.FreeNum(n); ferr != nil {
			util.DPrintf(0, "create %q: free inode %d: %v\n", p, n, ferr)
		}
		return 0, err
	}
	if err := fs.bmap.DirInsert(dip, inode.Dirent{Inum: ip.Inum, Name: name}); err != nil {
		util.DPrintf(1, "create %q: no room in directory %d: %v\n", p, dip.Inum, err)
		if ferr := fs.ialloc.FreeNum(n); ferr != nil {
			return 0, ferr
		}
		return 0, unix.ENOSPC
	}
	if ip.IsDir() {
		dip.Nlinks++
	}
	dip.Mtime = now
	dip.Ctime = now
	if err := fs.table.Put(dip); err != nil {
		return 0, err
	}
	util.DPrintf(1, "create %q -> %d mode %o\n", p, ip.Inum, mode)
	return ip.Inum, nil
}

// Mknod creates a file. A mode without type bits makes a regular file.
func (fs *FS) Mknod(p string, mode uint32) error {
	if mode&unix.S_IFMT == 0 {
		mode |= unix.S_IFREG
	}
	if mode&unix.S_IFMT == unix.S_IFDIR {
		return fail("mknod", p, unix.EINVAL)
	}
	if _, err := fs.create(p, mode); err != nil {
		return fail("mknod", p, err)
	}
	return nil
}

func (fs *FS) Mkdir(p string, mode uint32) error {
	if _, err := fs.create(p, unix.S_IFDIR|(mode&^unix.S_IFMT)); err != nil {
		return fail("mkdir", p, err)
	}
	return nil
}

// remove unlinks the entry for p from its parent after check approves the
// target, then releases the target's blocks and inode.
func (fs *FS) remove(p string, check func(ip *inode.Inode) error) error {
	fs.ns.Lock()
	defer fs.ns.Unlock()
	dir, name, err := splitPath(p)
	if err != nil {
		return err
	}
	dip, err := fs.lookupParent(dir)
	if err != nil {
		return err
	}
	inum, ok, err := fs.bmap.DirLookup(dip, name)
	if err != nil {
		return err
	}
	if !ok {
		return unix.ENOENT
	}
	ip, err := fs.table.Get(inum)
	if err != nil {
		return err
	}
	if err := check(ip); err != nil {
		return err
	}

	if _, err := fs.bmap.DirRemove(dip, name); err != nil {
		return err
	}
	if err := fs.bmap.Free(ip); err != nil {
		return err
	}
	if err := fs.table.Put(ip); err != nil {
		return err
	}
	now := fs.now()
	if ip.IsDir() {
		dip.Nlinks--
	}
	dip.Mtime = now
	dip.Ctime = now
	if err := fs.table.Put(dip); err != nil {
		return err
	}
	util.DPrintf(1, "remove %q (%d)\n", p, inum)
	return fs.ialloc.FreeNum(uint64(inum))
}

func (fs *FS) Unlink(p string) error {
	err := fs.remove(p, func(ip *inode.Inode) error {
		if ip.IsDir() {
			return unix.EISDIR
		}
		return nil
	})
	if err != nil {
		return fail("unlink", p, err)
	}
	return nil
}

func (fs *FS) Rmdir(p string) error {
	if len(components(p)) == 0 {
		return fail("rmdir", p, unix.EBUSY)
	}
	err := fs.remove(p, func(ip *inode.Inode) error {
		if !ip.IsDir() {
			return unix.ENOTDIR
		}
		empty, err := fs.bmap.DirIsEmpty(ip)
		if err != nil {
			return err
		}
		if !empty {
			return unix.ENOTEMPTY
		}
		return nil
	})
	if err != nil {
		return fail("rmdir", p, err)
	}
	return nil
}

// Readdir lists "." and ".." followed by the directory's entries in slot
// order.
func (fs *FS) Readdir(p string) ([]inode.Dirent, error) {
	fs.ns.RLock()
	defer fs.ns.RUnlock()
	path, err := fs.walk(components(p))
	if err != nil {
		return nil, fail("readdir", p, err)
	}
	inum := path[len(path)-1]
	parent := inum
	if len(path) > 1 {
		parent = path[len(path)-2]
	}
	dip, err := fs.table.Get(inum)
	if err != nil {
		return nil, fail("readdir", p, err)
	}
	if !dip.IsDir() {
		return nil, fail("readdir", p, unix.ENOTDIR)
	}
	ents, err := fs.bmap.DirList(dip)
	if err != nil {
		return nil, fail("readdir", p, err)
	}
	return append([]inode.Dirent{{Inum: inum, Name: "."}, {Inum: parent, Name: ".."}}, ents...), nil
}
