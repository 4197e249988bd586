package disk

import "fmt"

type outOfBounds struct {
	op   string
	off  uint64
	n    int
	size uint64
}

func (e outOfBounds) Error() string {
	return fmt.Sprintf("out-of-bounds %s of %d bytes at %d (size %d)", e.op, e.n, e.off, e.size)
}
