package fs

import (
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/inode"
	"github.com/mit-pdos/raidfs/util"
)

// openFile resolves p and locks its inode for a read or write. The caller
// holds fs.ns shared and releases the inode lock.
func (fs *FS) openFile(p string) (*inode.Inode, error) {
	inum, err := fs.namei(p)
	if err != nil {
		return nil, err
	}
	fs.locks.Acquire(inum)
	ip, err := fs.table.Get(inum)
	if err != nil {
		fs.locks.Release(inum)
		return nil, err
	}
	if ip.IsDir() {
		fs.locks.Release(inum)
		return nil, unix.EISDIR
	}
	return ip, nil
}

// Read fills buf from offset off and returns the number of bytes read,
// which is short at end of file. Holes read as zeros.
func (fs *FS) Read(p string, off uint64, buf []byte) (uint64, error) {
	fs.ns.RLock()
	defer fs.ns.RUnlock()
	ip, err := fs.openFile(p)
	if err != nil {
		return 0, fail("read", p, err)
	}
	defer fs.locks.Release(ip.Inum)

	if off >= ip.Size {
		return 0, nil
	}
	n := util.Min(uint64(len(buf)), ip.Size-off)
	blk := make(disk.Block, common.BlockSize)
	for done := uint64(0); done < n; {
		pos := off + done
		boff := pos % common.BlockSize
		cnt := util.Min(common.BlockSize-boff, n-done)
		bn, ok, err := fs.bmap.Lookup(ip, pos/common.BlockSize)
		if err != nil {
			return done, fail("read", p, err)
		}
		if ok {
			if err := fs.bmap.Read(bn, blk); err != nil {
				return done, fail("read", p, err)
			}
			copy(buf[done:done+cnt], blk[boff:boff+cnt])
		} else {
			copy(buf[done:done+cnt], make([]byte, cnt))
		}
		done += cnt
	}
	util.DPrintf(5, "read %q [%d, %d)\n", p, off, off+n)
	return n, nil
}

// Write stores data at offset off, allocating blocks as needed, and returns
// the number of bytes written. A write that would end past MaxFileSize fails
// with EFBIG before changing anything. If space runs out partway, the bytes
// already written are kept and counted; a write that stores nothing leaves
// the file as it was.
func (fs *FS) Write(p string, off uint64, data []byte) (uint64, error) {
	fs.ns.RLock()
	defer fs.ns.RUnlock()
	ip, err := fs.openFile(p)
	if err != nil {
		return 0, fail("write", p, err)
	}
	defer fs.locks.Release(ip.Inum)

	n := uint64(len(data))
	if util.SumOverflows(off, n) || off+n > common.MaxFileSize {
		return 0, fail("write", p, unix.EFBIG)
	}
	orig := ip.Blocks
	done, werr := fs.writeBlocks(ip, off, data)
	if done == 0 && werr != nil {
		if err := fs.bmap.Release(ip, orig); err != nil {
			util.DPrintf(0, "write %q: releasing blocks: %v\n", p, err)
		}
		return 0, fail("write", p, werr)
	}
	if off+done > ip.Size {
		ip.Size = off + done
	}
	now := fs.now()
	ip.Mtime = now
	ip.Ctime = now
	if err := fs.table.Put(ip); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return done, fail("write", p, werr)
	}
	util.DPrintf(5, "write %q [%d, %d) size %d\n", p, off, off+n, ip.Size)
	return done, nil
}

func (fs *FS) writeBlocks(ip *inode.Inode, off uint64, data []byte) (uint64, error) {
	n := uint64(len(data))
	blk := make(disk.Block, common.BlockSize)
	for done := uint64(0); done < n; {
		pos := off + done
		boff := pos % common.BlockSize
		cnt := util.Min(common.BlockSize-boff, n-done)
		bn, err := fs.bmap.Alloc(ip, pos/common.BlockSize)
		if err != nil {
			return done, err
		}
		if cnt < common.BlockSize {
			if err := fs.bmap.Read(bn, blk); err != nil {
				return done, err
			}
		}
		copy(blk[boff:boff+cnt], data[done:done+cnt])
		if err := fs.bmap.Write(bn, blk); err != nil {
			return done, err
		}
		done += cnt
	}
	return n, nil
}
