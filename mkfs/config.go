package mkfs

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/jmgilman/go/errors"

	"github.com/mit-pdos/raidfs/common"
)

// Config describes the filesystem to lay out.
type Config struct {
	Mode          common.Mode
	NumInodes     uint64
	NumDataBlocks uint64
	Disks         []string
	Uid           uint32 // owner of the root directory
	Gid           uint32
	Verbose       uint64
}

// round is the granularity of the inode and data block counts.
const round uint64 = 32

func roundUp32(n uint64) uint64 {
	return (n + round - 1) / round * round
}

// Normalize rounds the counts up to multiples of 32 and checks the
// configuration against a set of ndisks disks.
func (cfg *Config) Normalize(ndisks int) error {
	if !cfg.Mode.Valid() {
		return errors.Newf(errors.CodeInvalidInput, "unknown raid mode %d", uint64(cfg.Mode))
	}
	if ndisks < int(common.MINDISKS) {
		return errors.Newf(errors.CodeInvalidInput, "need at least %d disks, have %d", common.MINDISKS, ndisks)
	}
	if ndisks > int(common.MAXDISKS) {
		return errors.Newf(errors.CodeInvalidInput, "at most %d disks, have %d", common.MAXDISKS, ndisks)
	}
	if cfg.NumInodes == 0 || cfg.NumDataBlocks == 0 {
		return errors.New(errors.CodeInvalidInput, "inode and data block counts must be positive")
	}
	cfg.NumInodes = roundUp32(cfg.NumInodes)
	cfg.NumDataBlocks = roundUp32(cfg.NumDataBlocks)
	return nil
}

type diskList []string

func (l *diskList) String() string {
	return strings.Join(*l, ",")
}

func (l *diskList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

// ParseArgs reads the formatter's command line:
//
//	-r 0|1|1v -d disk [-d disk ...] -i inodes -b blocks [-v level]
func ParseArgs(args []string) (*Config, error) {
	var (
		mode    string
		disks   diskList
		inodes  uint64
		blocks  uint64
		verbose uint64
	)
	flags := flag.NewFlagSet("mkfs", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&mode, "r", "", "raid mode: 0 (striped), 1 (mirrored) or 1v (mirrored with voting)")
	flags.Var(&disks, "d", "disk image (repeat for each disk)")
	flags.Uint64Var(&inodes, "i", 0, "number of inodes")
	flags.Uint64Var(&blocks, "b", 0, "number of data blocks")
	flags.Uint64Var(&verbose, "v", 0, "debug level")
	if err := flags.Parse(args); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "bad arguments")
	}
	if flags.NArg() > 0 {
		return nil, errors.Newf(errors.CodeInvalidInput, "unexpected argument %q", flags.Arg(0))
	}
	if mode == "" {
		return nil, errors.New(errors.CodeInvalidInput, "raid mode (-r) is required")
	}
	m, ok := common.ParseMode(mode)
	if !ok {
		return nil, errors.Newf(errors.CodeInvalidInput, "unknown raid mode %q", mode)
	}
	cfg := &Config{
		Mode:          m,
		NumInodes:     inodes,
		NumDataBlocks: blocks,
		Disks:         disks,
		Uid:           uint32(os.Getuid()),
		Gid:           uint32(os.Getgid()),
		Verbose:       verbose,
	}
	if err := cfg.Normalize(len(disks)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Usage is the formatter's usage line.
const Usage = "usage: mkfs -r 0|1|1v -d disk [-d disk ...] -i inodes -b blocks [-v level]"
