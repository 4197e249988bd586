package fs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdisk "github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/disk"
	"github.com/mit-pdos/raidfs/inode"
	"github.com/mit-pdos/raidfs/mkfs"
	"github.com/mit-pdos/raidfs/super"
)

var testTime = time.Unix(1700000000, 0)

func testOptions() Options {
	return Options{Uid: 1000, Gid: 1000, Now: func() time.Time { return testTime }}
}

func mkTestFs(t *testing.T, mode common.Mode, ndisks, ninodes, nblocks uint64) (*FS, []disk.Disk) {
	need := super.MkSuperblock(mode, ndisks, roundUp32(ninodes), roundUp32(nblocks), uuid.Nil).ImageSize()
	var disks []disk.Disk
	for i := uint64(0); i < ndisks; i++ {
		disks = append(disks, disk.NewMemDisk(need))
	}
	cfg := &mkfs.Config{Mode: mode, NumInodes: ninodes, NumDataBlocks: nblocks, Uid: 1000, Gid: 1000}
	_, err := mkfs.Format(cfg, disks)
	require.NoError(t, err)
	fs, err := Mount(disks, testOptions())
	require.NoError(t, err)
	return fs, disks
}

func roundUp32(n uint64) uint64 {
	return (n + 31) / 32 * 32
}

var modes = []struct {
	mode   common.Mode
	ndisks uint64
}{
	{common.Striped, 2},
	{common.Striped, 3},
	{common.Mirrored, 2},
	{common.MirroredVoting, 3},
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) + seed
	}
	return b
}

func names(ents []inode.Dirent) []string {
	var ns []string
	for _, de := range ents {
		ns = append(ns, de.Name)
	}
	return ns
}

func TestScenario(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 64)

	require.NoError(t, fs.Mkdir("/a", 0755))
	require.NoError(t, fs.Mkdir("/a/b", 0755))
	require.NoError(t, fs.Mknod("/a/b/c.txt", 0644))
	n, err := fs.Write("/a/b/c.txt", 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(uint64(5), n)

	buf := make([]byte, 5)
	n, err = fs.Read("/a/b/c.txt", 0, buf)
	require.NoError(t, err)
	assert.Equal(uint64(5), n)
	assert.Equal("hello", string(buf))

	attr, err := fs.Getattr("/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(uint64(5), attr.Size)
	assert.Equal(uint32(unix.S_IFREG|0644), attr.Mode)
	assert.Equal(uint64(1), attr.Nlinks)
	assert.Equal(uint32(1000), attr.Uid)
	assert.Equal(testTime, attr.Mtime)

	ents, err := fs.Readdir("/a/b")
	require.NoError(t, err)
	assert.Equal([]string{".", "..", "c.txt"}, names(ents))
}

func TestRootAttr(t *testing.T) {
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 32)
	attr, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.True(t, attr.IsDir())
	assert.Equal(t, common.ROOTINUM, attr.Inum)
	assert.Equal(t, uint64(2), attr.Nlinks)

	ents, err := fs.Readdir("/")
	require.NoError(t, err)
	assert.Equal(t, []string{".", ".."}, names(ents))
}

func TestMkdirLinks(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 64)
	require.NoError(t, fs.Mkdir("/a", 0700))
	attr, err := fs.Getattr("/a")
	require.NoError(t, err)
	assert.Equal(uint32(unix.S_IFDIR|0700), attr.Mode)
	root, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.Equal(uint64(3), root.Nlinks)

	require.NoError(t, fs.Rmdir("/a"))
	root, err = fs.Getattr("/")
	require.NoError(t, err)
	assert.Equal(uint64(2), root.Nlinks)
}

func TestRoundTrip(t *testing.T) {
	for _, m := range modes {
		t.Run(fmt.Sprintf("%v-%d", m.mode, m.ndisks), func(t *testing.T) {
			fs, _ := mkTestFs(t, m.mode, m.ndisks, 32, 256)
			cases := []struct {
				off uint64
				n   int
			}{
				{0, 100},                           // direct
				{3*common.BlockSize + 17, 1500},    // direct, unaligned
				{12*common.BlockSize + 5, 2 * 512}, // indirect only
				{9*common.BlockSize + 300, 3000},   // direct and indirect
				{common.MaxFileSize - 700, 700},    // last indirect block
			}
			for i, c := range cases {
				p := fmt.Sprintf("/f%d", i)
				require.NoError(t, fs.Mknod(p, 0644))
				data := pattern(c.n, byte(i))
				n, err := fs.Write(p, c.off, data)
				require.NoError(t, err)
				assert.Equal(t, uint64(c.n), n)

				buf := make([]byte, c.n)
				n, err = fs.Read(p, c.off, buf)
				require.NoError(t, err)
				assert.Equal(t, uint64(c.n), n)
				assert.Equal(t, data, buf, "case %d", i)
			}
		})
	}
}

func TestSparseRead(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 64)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err := fs.Write("/f", 11*common.BlockSize, []byte("x"))
	require.NoError(t, err)

	buf := pattern(int(11*common.BlockSize)+1, 1)
	n, err := fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(11*common.BlockSize+1, n)
	assert.Equal(make([]byte, 11*common.BlockSize), buf[:11*common.BlockSize])
	assert.Equal(byte('x'), buf[11*common.BlockSize])
}

func TestReadPastEOF(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 32)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err := fs.Write("/f", 0, []byte("abc"))
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := fs.Read("/f", 1, buf)
	require.NoError(t, err)
	assert.Equal(uint64(2), n, "clamped to size")
	assert.Equal("bc", string(buf[:n]))
	n, err = fs.Read("/f", 3, buf)
	require.NoError(t, err)
	assert.Equal(uint64(0), n)
	n, err = fs.Read("/f", 1000, buf)
	require.NoError(t, err)
	assert.Equal(uint64(0), n)
}

func TestCapacityBoundary(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 128)
	require.NoError(t, fs.Mknod("/f", 0644))

	data := pattern(int(common.MaxFileSize), 3)
	n, err := fs.Write("/f", 0, data)
	require.NoError(t, err)
	assert.Equal(common.MaxFileSize, n)
	assert.Equal(uint64(37888), common.MaxFileSize)

	_, err = fs.Write("/f", common.MaxFileSize-1, []byte("ab"))
	assert.Equal(unix.EFBIG, Errno(err))
	assert.Equal(CodeFileTooLarge, errors.GetCode(err))
	_, err = fs.Write("/f", common.MaxFileSize, []byte("a"))
	assert.Equal(unix.EFBIG, Errno(err))

	attr, err := fs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(common.MaxFileSize, attr.Size, "failed writes change nothing")

	buf := make([]byte, common.MaxFileSize)
	_, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.True(bytes.Equal(data, buf))
}

func TestSizeMonotonic(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 3, 32, 96)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err := fs.Write("/f", 0, pattern(1000, 0))
	require.NoError(t, err)
	_, err = fs.Write("/f", 1000, pattern(500, 1))
	require.NoError(t, err)
	_, err = fs.Write("/f", 0, []byte("short"))
	require.NoError(t, err)
	attr, err := fs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(uint64(1500), attr.Size)
}

// bitmaps returns the raw inode and data bitmaps of every disk.
func bitmaps(t *testing.T, fs *FS, disks []disk.Disk) [][]byte {
	var maps [][]byte
	for _, d := range disks {
		b := make([]byte, fs.sb.ITableOff-fs.sb.IBitmapOff)
		require.NoError(t, d.ReadAt(fs.sb.IBitmapOff, b))
		maps = append(maps, b)
	}
	return maps
}

func TestMkdirRmdirSymmetry(t *testing.T) {
	for _, m := range modes {
		t.Run(fmt.Sprintf("%v-%d", m.mode, m.ndisks), func(t *testing.T) {
			fs, disks := mkTestFs(t, m.mode, m.ndisks, 32, 64)
			require.NoError(t, fs.Mkdir("/p", 0755))
			require.NoError(t, fs.Mknod("/p/keep", 0644))

			for _, p := range []string{"/d", "/p/d"} {
				before := bitmaps(t, fs, disks)
				require.NoError(t, fs.Mkdir(p, 0755))
				assert.NotEqual(t, before, bitmaps(t, fs, disks))
				require.NoError(t, fs.Rmdir(p))
				assert.Equal(t, before, bitmaps(t, fs, disks), p)
			}
		})
	}
}

func TestUnlinkFreesSpace(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 128)
	st0, err := fs.Statfs()
	require.NoError(t, err)

	require.NoError(t, fs.Mknod("/f", 0644))
	_, err = fs.Write("/f", 0, pattern(20*int(common.BlockSize), 0))
	require.NoError(t, err)
	st1, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st0.BlocksFree-21, st1.BlocksFree, "twenty data blocks and the indirect block")
	assert.Equal(st0.InodesFree-1, st1.InodesFree)

	require.NoError(t, fs.Unlink("/f"))
	st2, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st0, st2)
	_, err = fs.Getattr("/f")
	assert.Equal(unix.ENOENT, Errno(err))
}

func TestErrors(t *testing.T) {
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 64)
	require.NoError(t, fs.Mkdir("/d", 0755))
	require.NoError(t, fs.Mknod("/d/f", 0644))

	buf := make([]byte, 4)
	_, readDirErr := fs.Read("/d", 0, buf)
	_, writeDirErr := fs.Write("/d", 0, buf)
	_, readdirFileErr := fs.Readdir("/d/f")
	_, readdirMissingErr := fs.Readdir("/nope")
	_, getattrErr := fs.Getattr("/d/f/x")

	for _, c := range []struct {
		err   error
		errno unix.Errno
		code  errors.ErrorCode
	}{
		{getattrErr, unix.ENOENT, errors.CodeNotFound},
		{fs.Mknod("/d/f", 0644), unix.EEXIST, errors.CodeAlreadyExists},
		{fs.Mkdir("/d", 0755), unix.EEXIST, errors.CodeAlreadyExists},
		{fs.Mknod("/nope/f", 0644), unix.ENOENT, errors.CodeNotFound},
		{fs.Mknod("/d/f/g", 0644), unix.ENOENT, errors.CodeNotFound},
		{fs.Mknod("/", 0644), unix.EINVAL, errors.CodeInvalidInput},
		{fs.Mknod("/d/..", 0644), unix.EINVAL, errors.CodeInvalidInput},
		{fs.Mknod("/d/abcdefghijklmnopqrstuvwxyz01", 0644), unix.ENAMETOOLONG, errors.CodeInvalidInput},
		{fs.Mknod("/x", unix.S_IFDIR|0755), unix.EINVAL, errors.CodeInvalidInput},
		{fs.Unlink("/d"), unix.EISDIR, errors.CodeConflict},
		{fs.Unlink("/d/nope"), unix.ENOENT, errors.CodeNotFound},
		{fs.Rmdir("/d/f"), unix.ENOTDIR, errors.CodeConflict},
		{fs.Rmdir("/d"), unix.ENOTEMPTY, errors.CodeConflict},
		{fs.Rmdir("/"), unix.EBUSY, errors.CodeConflict},
		{fs.Rmdir("/nope"), unix.ENOENT, errors.CodeNotFound},
		{readDirErr, unix.EISDIR, errors.CodeConflict},
		{writeDirErr, unix.EISDIR, errors.CodeConflict},
		{readdirFileErr, unix.ENOTDIR, errors.CodeConflict},
		{readdirMissingErr, unix.ENOENT, errors.CodeNotFound},
	} {
		if assert.Error(t, c.err) {
			assert.Equal(t, c.errno, Errno(c.err), "%v", c.err)
			assert.True(t, errors.Is(c.err, c.errno), "%v", c.err)
			assert.Equal(t, c.code, errors.GetCode(c.err), "%v", c.err)
		}
	}
	assert.Equal(t, unix.Errno(0), Errno(nil))
}

func TestPathDots(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 64)
	require.NoError(t, fs.Mkdir("/a", 0755))
	require.NoError(t, fs.Mkdir("/a/b", 0755))
	a, err := fs.Getattr("/a")
	require.NoError(t, err)
	b, err := fs.Getattr("/a/../a/./b/")
	require.NoError(t, err)

	ents, err := fs.Readdir("/a/b")
	require.NoError(t, err)
	assert.Equal(inode.Dirent{Inum: b.Inum, Name: "."}, ents[0])
	assert.Equal(inode.Dirent{Inum: a.Inum, Name: ".."}, ents[1])

	root, err := fs.Getattr("/../..")
	require.NoError(t, err)
	assert.Equal(common.ROOTINUM, root.Inum)

	require.NoError(t, fs.Mknod("/a/file", 0644))
	for _, p := range []string{"/a/file/..", "/a/file/.", "/a/file/../b"} {
		_, err = fs.Getattr(p)
		assert.Equal(unix.ENOENT, Errno(err), p)
	}
	_, err = fs.Readdir("/a/file/..")
	assert.Equal(unix.ENOENT, Errno(err))
	assert.Equal(unix.ENOENT, Errno(fs.Mknod("/a/file/../c", 0644)))
}

func TestCreateRollback(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Mirrored, 2, 64, 32)
	require.NoError(t, fs.Mkdir("/d", 0755))
	for i := uint64(0); i < common.NDIRENT; i++ {
		require.NoError(t, fs.Mknod(fmt.Sprintf("/d/f%d", i), 0644))
	}
	require.NoError(t, fs.Mknod("/big", 0644))
	_, err := fs.Write("/big", 0, make([]byte, common.MaxFileSize))
	assert.Equal(unix.ENOSPC, Errno(err), "fill the disk")
	assert.Equal(CodeNoSpace, errors.GetCode(err))
	st0, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(uint64(0), st0.BlocksFree)

	err = fs.Mknod("/d/extra", 0644)
	assert.Equal(unix.ENOSPC, Errno(err))
	st1, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st0, st1, "inode released after failed insert")
	_, err = fs.Getattr("/d/extra")
	assert.Equal(unix.ENOENT, Errno(err))
}

func TestPartialWriteKeepsProgress(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Striped, 2, 32, 32)
	st, err := fs.Statfs()
	require.NoError(t, err)
	require.NoError(t, fs.Mknod("/f", 0644))
	n, err := fs.Write("/f", 0, pattern(int(common.MaxFileSize), 0))
	assert.Equal(unix.ENOSPC, Errno(err))
	// the indirect block takes one of the free blocks
	assert.Equal((st.BlocksFree-1)*common.BlockSize, n)
	attr, err := fs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(n, attr.Size)

	require.NoError(t, fs.Unlink("/f"))
	st2, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st, st2)
}

func TestFailedWriteLeavesFile(t *testing.T) {
	assert := assert.New(t)
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 32)
	require.NoError(t, fs.Mknod("/fill", 0644))
	// 28 data blocks and the indirect block leave one block free
	_, err := fs.Write("/fill", 0, make([]byte, 28*common.BlockSize))
	require.NoError(t, err)
	require.NoError(t, fs.Mknod("/f", 0644))
	st0, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(uint64(1), st0.BlocksFree)

	// the indirect block fits but its first data block does not
	n, err := fs.Write("/f", 11*common.BlockSize, []byte("x"))
	assert.Equal(unix.ENOSPC, Errno(err))
	assert.Equal(uint64(0), n)
	st1, err := fs.Statfs()
	require.NoError(t, err)
	assert.Equal(st0, st1, "indirect block released")

	_, err = fs.Write("/fill", 28*common.BlockSize, make([]byte, common.BlockSize))
	require.NoError(t, err)
	n, err = fs.Write("/f", 5000, []byte("x"))
	assert.Equal(unix.ENOSPC, Errno(err))
	assert.Equal(uint64(0), n)

	attr, err := fs.Getattr("/f")
	require.NoError(t, err)
	assert.Equal(uint64(0), attr.Size)
	assert.Equal([common.NBLOCKS]common.Bnum{}, fsInode(t, fs, "/f").Blocks)
}

func fsInode(t *testing.T, fs *FS, p string) *inode.Inode {
	inum, err := fs.namei(p)
	require.NoError(t, err)
	ip, err := fs.table.Get(inum)
	require.NoError(t, err)
	return ip
}

func TestInodeExhaustion(t *testing.T) {
	fs, _ := mkTestFs(t, common.Mirrored, 2, 32, 64)
	for i := 1; i < 32; i++ {
		require.NoError(t, fs.Mknod(fmt.Sprintf("/f%d", i), 0644))
	}
	err := fs.Mknod("/last", 0644)
	assert.Equal(t, unix.ENOSPC, Errno(err))
}

func corrupt(t *testing.T, fs *FS, d disk.Disk, p string) {
	inum, err := fs.namei(p)
	require.NoError(t, err)
	ip, err := fs.table.Get(inum)
	require.NoError(t, err)
	off := fs.sb.DataOff + uint64(ip.Blocks[0])*common.BlockSize
	require.NoError(t, d.WriteAt(off, pattern(int(common.BlockSize), 99)))
}

func TestVotingRecovers(t *testing.T) {
	fs, disks := mkTestFs(t, common.MirroredVoting, 3, 32, 32)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err := fs.Write("/f", 0, []byte("precious"))
	require.NoError(t, err)

	corrupt(t, fs, disks[0], "/f")
	buf := make([]byte, 8)
	_, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(buf))
}

func TestMirrorTrustsFirstDisk(t *testing.T) {
	fs, disks := mkTestFs(t, common.Mirrored, 3, 32, 32)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err := fs.Write("/f", 0, []byte("precious"))
	require.NoError(t, err)

	corrupt(t, fs, disks[1], "/f")
	buf := make([]byte, 8)
	_, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(buf))

	corrupt(t, fs, disks[0], "/f")
	_, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.NotEqual(t, "precious", string(buf))
}

func TestConcurrent(t *testing.T) {
	fs, _ := mkTestFs(t, common.Striped, 3, 64, 384)
	const nfiles = 8
	var wg sync.WaitGroup
	for g := 0; g < nfiles; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			p := fmt.Sprintf("/f%d", g)
			assert.NoError(t, fs.Mknod(p, 0644))
			data := pattern(int(20*common.BlockSize), byte(g))
			for off := 0; off < len(data); off += 700 {
				end := off + 700
				if end > len(data) {
					end = len(data)
				}
				_, err := fs.Write(p, uint64(off), data[off:end])
				assert.NoError(t, err)
			}
			buf := make([]byte, len(data))
			_, err := fs.Read(p, 0, buf)
			assert.NoError(t, err)
			assert.Equal(t, data, buf, p)
		}(g)
	}
	wg.Wait()

	ents, err := fs.Readdir("/")
	require.NoError(t, err)
	assert.Len(t, ents, nfiles+2)
	st, err := fs.Statfs()
	require.NoError(t, err)
	// twenty data blocks plus an indirect block per file, plus the root block
	assert.Equal(t, st.Blocks-nfiles*21-1, st.BlocksFree)
}

func TestRemount(t *testing.T) {
	fs, disks := mkTestFs(t, common.MirroredVoting, 3, 32, 64)
	require.NoError(t, fs.Mkdir("/d", 0755))
	require.NoError(t, fs.Mknod("/d/f", 0644))
	_, err := fs.Write("/d/f", 0, []byte("persist"))
	require.NoError(t, err)
	require.NoError(t, fs.Sync())

	fs2, err := Mount(disks, testOptions())
	require.NoError(t, err)
	buf := make([]byte, 7)
	_, err = fs2.Read("/d/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "persist", string(buf))
}

func TestMountBootstrapsRoot(t *testing.T) {
	sb := super.MkSuperblock(common.Striped, 2, 32, 64, uuid.New())
	var disks []disk.Disk
	for i := 0; i < 2; i++ {
		d := disk.NewMemDisk(sb.ImageSize())
		require.NoError(t, sb.Write(d))
		disks = append(disks, d)
	}
	fs, err := Mount(disks, testOptions())
	require.NoError(t, err)
	attr, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.True(t, attr.IsDir())
	assert.Equal(t, uint32(1000), attr.Uid)
	require.NoError(t, fs.Mknod("/f", 0644))
}

func TestMountDefaults(t *testing.T) {
	sb := super.MkSuperblock(common.Mirrored, 2, 32, 32, uuid.New())
	var disks []disk.Disk
	for i := 0; i < 2; i++ {
		d := disk.NewMemDisk(sb.ImageSize())
		require.NoError(t, sb.Write(d))
		disks = append(disks, d)
	}
	before := time.Now().Add(-time.Second)
	fs, err := Mount(disks, Options{})
	require.NoError(t, err)
	attr, err := fs.Getattr("/")
	require.NoError(t, err)
	assert.Equal(t, uint32(os.Getuid()), attr.Uid)
	assert.Equal(t, uint32(os.Getgid()), attr.Gid)
	assert.False(t, attr.Mtime.Before(before.Truncate(time.Second)), "process clock")
}

func TestMountRejects(t *testing.T) {
	_, disks := mkTestFs(t, common.Mirrored, 3, 32, 32)
	_, err := Mount(disks[:2], testOptions())
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))

	_, other := mkTestFs(t, common.Mirrored, 3, 32, 32)
	_, err = Mount([]disk.Disk{disks[0], other[1], disks[2]}, testOptions())
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err), "disk from another array")
}

func TestMountPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := &mkfs.Config{Mode: common.Striped, NumInodes: 32, NumDataBlocks: 64}
	for i := 0; i < 2; i++ {
		p := filepath.Join(dir, fmt.Sprintf("disk%d.img", i))
		require.NoError(t, os.WriteFile(p, make([]byte, 1<<20), 0644))
		cfg.Disks = append(cfg.Disks, p)
	}
	_, err := mkfs.FormatPaths(cfg)
	require.NoError(t, err)

	fs, err := MountPaths(cfg.Disks, testOptions())
	require.NoError(t, err)
	require.NoError(t, fs.Mknod("/f", 0644))
	_, err = fs.Write("/f", 0, []byte("mapped"))
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	fs, err = MountPaths(cfg.Disks, testOptions())
	require.NoError(t, err)
	defer fs.Close()
	buf := make([]byte, 6)
	_, err = fs.Read("/f", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(buf))

	_, err = MountPaths(append(cfg.Disks, filepath.Join(dir, "missing.img")), testOptions())
	assert.Error(t, err)
}

func TestBlockDiskBackend(t *testing.T) {
	need := super.MkSuperblock(common.MirroredVoting, 3, 32, 64, uuid.Nil).ImageSize()
	nblks := (need + gdisk.BlockSize - 1) / gdisk.BlockSize
	var disks []disk.Disk
	for i := 0; i < 3; i++ {
		disks = append(disks, disk.NewBlockDisk(gdisk.NewMemDisk(nblks), nblks))
	}
	cfg := &mkfs.Config{Mode: common.MirroredVoting, NumInodes: 32, NumDataBlocks: 64}
	_, err := mkfs.Format(cfg, disks)
	require.NoError(t, err)

	fs, err := Mount(disks, testOptions())
	require.NoError(t, err)
	require.NoError(t, fs.Mknod("/f", 0644))
	data := pattern(3000, 5)
	_, err = fs.Write("/f", 100, data)
	require.NoError(t, err)
	buf := make([]byte, len(data))
	_, err = fs.Read("/f", 100, buf)
	require.NoError(t, err)
	assert.Equal(t, data, buf)
	require.NoError(t, fs.Close())
}
