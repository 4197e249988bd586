package fs

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/common"
	"github.com/mit-pdos/raidfs/inode"
)

// components returns the non-empty names of a slash-separated path.
func components(p string) []string {
	var names []string
	for _, c := range strings.Split(p, "/") {
		if c != "" {
			names = append(names, c)
		}
	}
	return names
}

// splitPath separates the last component of p from its directory. The root
// and the dot names cannot be created or removed.
func splitPath(p string) (dir []string, name string, err error) {
	names := components(p)
	if len(names) == 0 {
		return nil, "", unix.EINVAL
	}
	name = names[len(names)-1]
	if name == "." || name == ".." {
		return nil, "", unix.EINVAL
	}
	if err := inode.CheckName(name); err != nil {
		return nil, "", err
	}
	return names[:len(names)-1], name, nil
}

// walk resolves names from the root and returns the inode numbers along the
// way, root first. "." stays put and ".." goes back one step, stopping at
// the root. Every component, dots included, must be looked up in a
// directory; a missing component or a non-directory along the way is ENOENT.
// The caller holds fs.ns.
func (fs *FS) walk(names []string) ([]common.Inum, error) {
	path := []common.Inum{common.ROOTINUM}
	for _, name := range names {
		dip, err := fs.table.Get(path[len(path)-1])
		if err != nil {
			return nil, err
		}
		if !dip.IsDir() {
			return nil, unix.ENOENT
		}
		switch name {
		case ".":
			continue
		case "..":
			if len(path) > 1 {
				path = path[:len(path)-1]
			}
			continue
		}
		inum, ok, err := fs.bmap.DirLookup(dip, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, unix.ENOENT
		}
		path = append(path, inum)
	}
	return path, nil
}

// namei resolves p to an inode number.
func (fs *FS) namei(p string) (common.Inum, error) {
	path, err := fs.walk(components(p))
	if err != nil {
		return 0, err
	}
	return path[len(path)-1], nil
}

// lookupParent resolves dir, which must name a directory, and loads it.
func (fs *FS) lookupParent(dir []string) (*inode.Inode, error) {
	path, err := fs.walk(dir)
	if err != nil {
		return nil, err
	}
	dip, err := fs.table.Get(path[len(path)-1])
	if err != nil {
		return nil, err
	}
	if !dip.IsDir() {
		return nil, unix.ENOENT
	}
	return dip, nil
}
