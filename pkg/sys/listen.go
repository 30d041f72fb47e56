//go:build linux

package sys

import (
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen
// creates a socket for network bound to addr. Stream and seqpacket sockets
// are put into the listening state; datagram sockets are only bound.
// It returns the descriptor and the bound local address.
func Listen(network string, addr Addr) (fd int, local Addr, err error) {
	sotype, proto, typeErr := SocketTypeOf(network)
	if typeErr != nil {
		err = typeErr
		return
	}
	fd, err = NewSocket(addr.Family(), sotype, proto)
	if err != nil {
		return
	}
	if addr.IsIP() {
		if addr.Kind() == KindInet6 {
			if err = SetIpv6only(fd, strings.HasSuffix(network, "6")); err != nil {
				_ = unix.Close(fd)
				return
			}
		}
		if sotype == syscall.SOCK_STREAM {
			if err = AllowReuseAddr(fd); err != nil {
				_ = unix.Close(fd)
				return
			}
		}
	}
	if err = Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return
	}
	if sotype != syscall.SOCK_DGRAM {
		if err = unix.Listen(fd, MaxListenerBacklog()); err != nil {
			_ = unix.Close(fd)
			err = os.NewSyscallError("listen", err)
			return
		}
	}
	if local, err = Getsockname(fd); err != nil {
		_ = unix.Close(fd)
		err = os.NewSyscallError("getsockname", err)
		return
	}
	local = local.WithNetwork(network)
	return
}
