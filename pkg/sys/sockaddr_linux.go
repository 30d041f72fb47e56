//go:build linux

package sys

import (
	"net"
	"net/netip"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
)

// sizeofSaFamily is sizeof(sa_family_t). A Unix address of that length
// carries no name.
const sizeofSaFamily = uint32(unsafe.Sizeof(syscall.RawSockaddr{}.Family))

var sizeofPath = len(syscall.RawSockaddrUnix{}.Path)

// EncodeSockaddr
// lays addr out the way the kernel expects it. The returned storage must stay
// reachable while the kernel may read it.
func EncodeSockaddr(addr Addr) (raw *syscall.RawSockaddrAny, rawLen uint32, err error) {
	raw = &syscall.RawSockaddrAny{}
	switch addr.kind {
	case KindInet4:
		sa := (*syscall.RawSockaddrInet4)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_INET
		putPort(&sa.Port, addr.ap.Port())
		sa.Addr = addr.ap.Addr().As4()
		rawLen = syscall.SizeofSockaddrInet4
	case KindInet6:
		sa := (*syscall.RawSockaddrInet6)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_INET6
		putPort(&sa.Port, addr.ap.Port())
		sa.Addr = addr.ap.Addr().As16()
		if zone := addr.ap.Addr().Zone(); zone != "" {
			if ifi, ifiErr := net.InterfaceByName(zone); ifiErr == nil {
				sa.Scope_id = uint32(ifi.Index)
			}
		}
		rawLen = syscall.SizeofSockaddrInet6
	case KindUnixPath:
		name := addr.name
		// a path needs room for its terminating NUL
		if len(name) == 0 || len(name) >= sizeofPath {
			err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
			return
		}
		sa := (*syscall.RawSockaddrUnix)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_UNIX
		for i := 0; i < len(name); i++ {
			sa.Path[i] = int8(name[i])
		}
		rawLen = sizeofSaFamily + uint32(len(name)) + 1
	case KindUnixAbstract:
		name := addr.name
		if len(name)+1 > sizeofPath {
			err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
			return
		}
		sa := (*syscall.RawSockaddrUnix)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_UNIX
		sa.Path[0] = 0
		for i := 0; i < len(name); i++ {
			sa.Path[i+1] = int8(name[i])
		}
		// the name is exactly the bytes covered by the length, no terminator
		rawLen = sizeofSaFamily + 1 + uint32(len(name))
	case KindUnixUnnamed:
		sa := (*syscall.RawSockaddrUnix)(unsafe.Pointer(raw))
		sa.Family = syscall.AF_UNIX
		rawLen = sizeofSaFamily
	default:
		err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EAFNOSUPPORT))
	}
	return
}

// DecodeSockaddr
// reads a kernel-filled address of rawLen bytes. Unix addresses go through
// UnixAddrFromRaw.
func DecodeSockaddr(raw *syscall.RawSockaddrAny, rawLen uint32) (addr Addr, err error) {
	if raw == nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
		return
	}
	switch raw.Addr.Family {
	case syscall.AF_INET:
		if rawLen < syscall.SizeofSockaddrInet4 {
			err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
			return
		}
		sa := (*syscall.RawSockaddrInet4)(unsafe.Pointer(raw))
		addr = Addr{kind: KindInet4, ap: netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), getPort(&sa.Port))}
	case syscall.AF_INET6:
		if rawLen < syscall.SizeofSockaddrInet6 {
			err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
			return
		}
		sa := (*syscall.RawSockaddrInet6)(unsafe.Pointer(raw))
		ip := netip.AddrFrom16(sa.Addr)
		if sa.Scope_id != 0 {
			if ifi, ifiErr := net.InterfaceByIndex(int(sa.Scope_id)); ifiErr == nil {
				ip = ip.WithZone(ifi.Name)
			}
		}
		addr = AddrFromAddrPort(netip.AddrPortFrom(ip, getPort(&sa.Port)))
	case syscall.AF_UNIX:
		addr, err = UnixAddrFromRaw(raw, rawLen)
	default:
		err = errors.From(ErrFamilyMismatch, errors.WithWrap(syscall.EAFNOSUPPORT))
	}
	return
}

// UnixAddrFromRaw
// converts kernel-filled storage into a Unix address. The length decides the
// variant: no name bytes is unnamed, a leading NUL is abstract, anything
// else is a NUL-terminated path.
func UnixAddrFromRaw(raw *syscall.RawSockaddrAny, rawLen uint32) (addr Addr, err error) {
	if raw == nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(syscall.EINVAL))
		return
	}
	// recvmsg reports zero length for an unbound datagram peer
	if rawLen == 0 {
		addr = UnixUnnamed()
		return
	}
	if raw.Addr.Family != syscall.AF_UNIX {
		err = errors.From(ErrFamilyMismatch, errors.WithWrap(syscall.EAFNOSUPPORT))
		return
	}
	if rawLen <= sizeofSaFamily {
		addr = UnixUnnamed()
		return
	}
	sa := (*syscall.RawSockaddrUnix)(unsafe.Pointer(raw))
	n := int(rawLen - sizeofSaFamily)
	if n > sizeofPath {
		n = sizeofPath
	}
	path := unsafe.Slice((*byte)(unsafe.Pointer(&sa.Path[0])), n)
	if path[0] == 0 {
		addr = UnixAbstract(string(path[1:]))
		return
	}
	end := 0
	for end < n && path[end] != 0 {
		end++
	}
	addr = UnixPath(string(path[:end]))
	return
}

func putPort(p *uint16, port uint16) {
	b := (*[2]byte)(unsafe.Pointer(p))
	b[0] = byte(port >> 8)
	b[1] = byte(port)
}

func getPort(p *uint16) uint16 {
	b := (*[2]byte)(unsafe.Pointer(p))
	return uint16(b[0])<<8 | uint16(b[1])
}

// Getsockname
// returns the local address of fd without the textual rewriting of abstract
// names done by the standard library.
func Getsockname(fd int) (Addr, error) {
	return sockname(syscall.SYS_GETSOCKNAME, fd)
}

// Getpeername
// returns the remote address of a connected fd.
func Getpeername(fd int) (Addr, error) {
	return sockname(syscall.SYS_GETPEERNAME, fd)
}

func sockname(trap uintptr, fd int) (addr Addr, err error) {
	var raw syscall.RawSockaddrAny
	rawLen := uint32(syscall.SizeofSockaddrAny)
	_, _, errno := syscall.RawSyscall(trap, uintptr(fd), uintptr(unsafe.Pointer(&raw)), uintptr(unsafe.Pointer(&rawLen)))
	if errno != 0 {
		err = errno
		return
	}
	addr, err = DecodeSockaddr(&raw, rawLen)
	return
}
