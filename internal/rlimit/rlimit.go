// Package rlimit raises the open-file limit at CLI startup. A tree diff
// or patch touches one file per frame plus backups; on large trees the
// default soft limit is too easy to exhaust.
package rlimit

import (
	"io/ioutil"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// BumpNOFILE raises RLIMIT_NOFILE to the highest value the kernel
// allows.
func BumpNOFILE() error {
	// The smaller of the two is the highest which Linux will let us set:
	// https://github.com/torvalds/linux/blob/2be7d348fe924f0c5583c6a805bd42cecda93104/kernel/sys.c#L1526-L1541
	var fileMax, nrOpen uint64
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/file-max")
		if err != nil {
			return err
		}
		fileMax, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	{
		b, err := ioutil.ReadFile("/proc/sys/fs/nr_open")
		if err != nil {
			return err
		}
		nrOpen, err = strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
		if err != nil {
			return err
		}
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	set := unix.Rlimit{
		Max: max,
		Cur: max,
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &set)
}
