//go:build windows

package transport

import "golang.org/x/sys/windows"

// soExclusiveAddrUse is Winsock's SO_EXCLUSIVEADDRUSE, defined as
// ~SO_REUSEADDR. On Windows SO_REUSEADDR would let another socket steal a
// bound port; exclusive use keeps the port ours while rebinding after
// TIME_WAIT still works.
const soExclusiveAddrUse = ^windows.SO_REUSEADDR

func setReuseAddr(fd uintptr) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, soExclusiveAddrUse, 1)
}
