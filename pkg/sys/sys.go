//go:build linux

package sys

import (
	"os"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

func boolint(b bool) int {
	if b {
		return 1
	}
	return 0
}

var dupCloexecUnsupported atomic.Bool

// DupCloseOnExec
// duplicates fd with close-on-exec set.
func DupCloseOnExec(fd int) (int, error) {
	if !dupCloexecUnsupported.Load() {
		nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
		if err == nil {
			return nfd, nil
		}
		switch err {
		case unix.EINVAL, unix.ENOSYS:
			dupCloexecUnsupported.Store(true)
		default:
			return -1, os.NewSyscallError("fcntl", err)
		}
	}
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, os.NewSyscallError("dup", err)
	}
	unix.CloseOnExec(nfd)
	return nfd, nil
}

// IsFile
// reports whether fd refers to something other than a socket.
func IsFile(fd int) (bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false, os.NewSyscallError("fstat", err)
	}
	return st.Mode&unix.S_IFMT != unix.S_IFSOCK, nil
}
