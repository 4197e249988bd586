package main

import (
	"fmt"
	"os"

	"github.com/mit-pdos/raidfs/mkfs"
	"github.com/mit-pdos/raidfs/util"
)

func main() {
	cfg, err := mkfs.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, mkfs.Usage)
		os.Exit(1)
	}
	if cfg.Verbose > 0 {
		util.SetDebug(cfg.Verbose)
	}
	if _, err := mkfs.FormatPaths(cfg); err != nil {
		util.Logger().WithError(err).Error("mkfs failed")
		os.Exit(1)
	}
}
