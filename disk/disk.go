package disk

// Block is one filesystem block worth of bytes
type Block = []byte

// Disk provides byte-addressed access to one backing image.
//
// Filesystem regions (superblock, bitmaps, inode table, data) live at byte
// offsets recorded in the superblock, so the interface is offset based rather
// than block based.
type Disk interface {
	// ReadAt fills b with the bytes starting at off.
	//
	// Expects off+len(b) <= Size().
	ReadAt(off uint64, b []byte) error

	// WriteAt stores b starting at off.
	//
	// Expects off+len(b) <= Size().
	WriteAt(off uint64, b []byte) error

	// Size reports how big the image is, in bytes
	Size() uint64

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// the backing store.
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

func checkRange(op string, off uint64, n int, size uint64) {
	end := off + uint64(n)
	if end < off || end > size {
		panic(outOfBounds{op: op, off: off, n: n, size: size})
	}
}
