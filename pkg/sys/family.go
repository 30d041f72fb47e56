//go:build linux

package sys

import (
	"net"
	"syscall"
)

// SocketTypeOf
// maps a network name onto the socket type and protocol to create.
func SocketTypeOf(network string) (sotype int, proto int, err error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		return syscall.SOCK_STREAM, syscall.IPPROTO_TCP, nil
	case "udp", "udp4", "udp6":
		return syscall.SOCK_DGRAM, syscall.IPPROTO_UDP, nil
	case "unix":
		return syscall.SOCK_STREAM, 0, nil
	case "unixgram":
		return syscall.SOCK_DGRAM, 0, nil
	case "unixpacket":
		return syscall.SOCK_SEQPACKET, 0, nil
	default:
		return 0, 0, net.UnknownNetworkError(network)
	}
}

// NetworkOf
// names the network of a socket from its family and type.
func NetworkOf(family int, sotype int) string {
	switch family {
	case syscall.AF_INET, syscall.AF_INET6:
		switch sotype {
		case syscall.SOCK_STREAM:
			return "tcp"
		case syscall.SOCK_DGRAM:
			return "udp"
		}
	case syscall.AF_UNIX:
		switch sotype {
		case syscall.SOCK_STREAM:
			return "unix"
		case syscall.SOCK_DGRAM:
			return "unixgram"
		case syscall.SOCK_SEQPACKET:
			return "unixpacket"
		}
	}
	return ""
}
