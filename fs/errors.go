package fs

import (
	"github.com/jmgilman/go/errors"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/raidfs/util"
)

const (
	CodeNoSpace      errors.ErrorCode = "NO_SPACE"
	CodeFileTooLarge errors.ErrorCode = "FILE_TOO_LARGE"
)

func codeOf(errno unix.Errno) errors.ErrorCode {
	switch errno {
	case unix.ENOENT:
		return errors.CodeNotFound
	case unix.EEXIST:
		return errors.CodeAlreadyExists
	case unix.EISDIR, unix.ENOTDIR, unix.ENOTEMPTY, unix.EBUSY:
		return errors.CodeConflict
	case unix.ENOSPC:
		return CodeNoSpace
	case unix.EFBIG:
		return CodeFileTooLarge
	case unix.EINVAL, unix.ENAMETOOLONG:
		return errors.CodeInvalidInput
	}
	return errors.CodeInternal
}

// fail classifies err for operation op on path p. Errors that are not errno
// values come from the disks and are reported as internal.
func fail(op string, p string, err error) error {
	code := errors.CodeInternal
	var errno unix.Errno
	if errors.As(err, &errno) {
		code = codeOf(errno)
	}
	util.DPrintf(3, "%s %q: %v\n", op, p, err)
	return errors.WrapWithContext(err, code, op, map[string]interface{}{"path": p})
}

// Errno returns the POSIX error number to report for err, or 0 for nil.
func Errno(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}
