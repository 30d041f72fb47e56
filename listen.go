//go:build linux

package proactor

import (
	"context"
	"net"
	"strings"

	"github.com/brickingsoft/proactor/pkg/sys"
)

// ListenTCP
// creates a listening stream socket on "host:port". An empty host listens
// on the wildcard address; port 0 picks an ephemeral port, see LocalAddr.
func ListenTCP(network string, address string) (*Handle, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, newOpErr(errMetaOpListen, "listen", net.UnknownNetworkError(network))
	}
	addr, err := listenAddr(network, address)
	if err != nil {
		return nil, err
	}
	return listen(network, addr)
}

// ListenUnix
// creates a listening stream socket on a path or abstract address.
func ListenUnix(addr Addr) (*Handle, error) {
	if !addr.IsUnix() {
		return nil, newConversionErr(errMetaOpListen, sys.ErrFamilyMismatch)
	}
	return listen("unix", addr)
}

// BindUDP
// creates a datagram socket bound to "host:port".
func BindUDP(network string, address string) (*Handle, error) {
	if !strings.HasPrefix(network, "udp") {
		return nil, newOpErr(errMetaOpListen, "bind", net.UnknownNetworkError(network))
	}
	addr, err := listenAddr(network, address)
	if err != nil {
		return nil, err
	}
	return listen(network, addr)
}

// BindUnixgram
// creates a unixgram socket bound to addr. The unnamed address autobinds
// to a kernel chosen abstract name.
func BindUnixgram(addr Addr) (*Handle, error) {
	if !addr.IsUnix() {
		return nil, newConversionErr(errMetaOpListen, sys.ErrFamilyMismatch)
	}
	return listen("unixgram", addr)
}

func listenAddr(network string, address string) (Addr, error) {
	host, _, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		return Addr{}, newConversionErr(errMetaOpListen, splitErr)
	}
	addrs, err := sys.ResolveAddresses(context.Background(), network, address)
	if err != nil {
		return Addr{}, newConversionErr(errMetaOpListen, err)
	}
	if len(addrs) == 0 {
		return Addr{}, newConversionErr(errMetaOpListen, sys.ErrFamilyMismatch)
	}
	addr := addrs[0]
	if host == "" {
		port := addr.AddrPort().Port()
		addr, _ = addr.Unspecified()
		addr = addr.WithPort(port)
	}
	return addr, nil
}

func listen(network string, addr Addr) (*Handle, error) {
	fd, local, err := sys.Listen(network, addr)
	if err != nil {
		return nil, newOpErr(errMetaOpListen, "listen", err)
	}
	return newHandle(fd, network, local, Addr{}), nil
}
