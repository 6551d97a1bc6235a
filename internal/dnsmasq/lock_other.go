//go:build !unix

package dnsmasq

import "os"

// lockFile is a no-op on platforms without flock(2).
func lockFile(f *os.File) error { return nil }

func unlockFile(f *os.File) error { return nil }
