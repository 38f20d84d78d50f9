//go:build unix

package main

import "syscall"

// raiseNofileLimit raises the soft RLIMIT_NOFILE to n, capped at the hard
// limit. Cloning and scanning many repositories concurrently can open far
// more file descriptors than the default soft limit allows.
func raiseNofileLimit(n uint64) error {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return err
	}
	if rlimit.Max != 0 && n > rlimit.Max {
		n = rlimit.Max
	}
	rlimit.Cur = n
	return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rlimit)
}
