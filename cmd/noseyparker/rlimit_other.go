//go:build !unix

package main

import "fmt"

// raiseNofileLimit is a no-op on platforms without RLIMIT_NOFILE (Windows).
func raiseNofileLimit(n uint64) error {
	return fmt.Errorf("--rlimit-nofile is not supported on this platform")
}
