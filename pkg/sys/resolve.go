package sys

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/brickingsoft/errors"
)

// ResolveAddresses
// turns "host:port" (or a Unix name) into an ordered candidate list.
// Literal IPs are parsed without lookup. Host names go through the system
// resolver on the calling goroutine and may block.
func ResolveAddresses(ctx context.Context, network string, address string) (addrs []Addr, err error) {
	network = strings.TrimSpace(network)
	if network == "" {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(errors.New("missing network")))
		return
	}
	address = strings.TrimSpace(address)
	switch network {
	case "unix", "unixgram", "unixpacket":
		addrs = append(addrs, ParseUnix(address).WithNetwork(network))
		return
	case "tcp", "tcp4", "tcp6", "udp", "udp4", "udp6":
		break
	default:
		err = errors.From(ErrInvalidAddr, errors.WithWrap(net.UnknownNetworkError(network)))
		return
	}
	if address == "" {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(errors.New("missing address")))
		return
	}
	host, service, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(splitErr))
		return
	}
	port, portErr := net.DefaultResolver.LookupPort(ctx, network, service)
	if portErr != nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(portErr))
		return
	}
	if host == "" {
		addrs = append(addrs, Loopback(network, uint16(port)))
		return
	}
	if ip, ipErr := netip.ParseAddr(host); ipErr == nil {
		addr := AddrFromAddrPort(netip.AddrPortFrom(ip, uint16(port))).WithNetwork(network)
		if matchFamily(network, addr) {
			addrs = append(addrs, addr)
		}
		return
	}

	lookup := "ip"
	switch {
	case strings.HasSuffix(network, "4"):
		lookup = "ip4"
	case strings.HasSuffix(network, "6"):
		lookup = "ip6"
	}
	ips, ipsErr := net.DefaultResolver.LookupNetIP(ctx, lookup, host)
	if ipsErr != nil {
		err = ipsErr
		return
	}
	for _, ip := range ips {
		addr := AddrFromAddrPort(netip.AddrPortFrom(ip, uint16(port))).WithNetwork(network)
		if !matchFamily(network, addr) {
			continue
		}
		addrs = append(addrs, addr)
	}
	return
}

func matchFamily(network string, addr Addr) bool {
	switch {
	case strings.HasSuffix(network, "4"):
		return addr.Kind() == KindInet4
	case strings.HasSuffix(network, "6"):
		return addr.Kind() == KindInet6
	default:
		return addr.IsIP()
	}
}
