package sys

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
	"syscall"

	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidAddr    = errors.Define("invalid address")
	ErrFamilyMismatch = errors.Define("address family mismatch")
)

// Kind
// tags which variant an Addr holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInet4
	KindInet6
	KindUnixPath
	KindUnixAbstract
	KindUnixUnnamed
)

func (kind Kind) String() string {
	switch kind {
	case KindInet4:
		return "inet4"
	case KindInet6:
		return "inet6"
	case KindUnixPath:
		return "unix-path"
	case KindUnixAbstract:
		return "unix-abstract"
	case KindUnixUnnamed:
		return "unix-unnamed"
	default:
		return "invalid"
	}
}

// Addr
// is a socket address in one of five variants: IPv4, IPv6, Unix path,
// Unix abstract and Unix unnamed. The zero value is invalid.
//
// Abstract names are kept without the leading NUL and may contain any byte.
// They are shown with a leading '@' by String, but text is never parsed back
// into a kind except through ParseUnix.
type Addr struct {
	kind    Kind
	ap      netip.AddrPort
	name    string
	network string
}

// AddrFromAddrPort
// builds an IP address. IPv4-mapped IPv6 addresses become IPv4.
func AddrFromAddrPort(ap netip.AddrPort) Addr {
	ip := ap.Addr()
	if ip.Is4In6() {
		ip = ip.Unmap()
		ap = netip.AddrPortFrom(ip, ap.Port())
	}
	if ip.Is4() {
		return Addr{kind: KindInet4, ap: ap}
	}
	if ip.Is6() {
		return Addr{kind: KindInet6, ap: ap}
	}
	return Addr{}
}

func UnixPath(path string) Addr {
	return Addr{kind: KindUnixPath, name: path, network: "unix"}
}

func UnixAbstract(name string) Addr {
	return Addr{kind: KindUnixAbstract, name: name, network: "unix"}
}

func UnixUnnamed() Addr {
	return Addr{kind: KindUnixUnnamed, network: "unix"}
}

// ParseUnix
// maps the textual convention used by net.UnixAddr: empty is unnamed,
// a leading '@' is abstract, anything else is a path.
func ParseUnix(name string) Addr {
	switch {
	case name == "":
		return UnixUnnamed()
	case name[0] == '@':
		return UnixAbstract(name[1:])
	default:
		return UnixPath(name)
	}
}

// FromNetAddr
// converts the standard library address types.
func FromNetAddr(a net.Addr) (addr Addr, err error) {
	switch v := a.(type) {
	case *net.TCPAddr:
		addr = AddrFromAddrPort(v.AddrPort()).WithNetwork(v.Network())
	case *net.UDPAddr:
		addr = AddrFromAddrPort(v.AddrPort()).WithNetwork(v.Network())
	case *net.UnixAddr:
		addr = ParseUnix(v.Name).WithNetwork(v.Net)
	case nil:
		err = errors.From(ErrInvalidAddr, errors.WithWrap(errors.New("nil address")))
		return
	default:
		err = errors.From(ErrInvalidAddr, errors.WithWrap(errors.New("unsupported address type "+a.Network())))
		return
	}
	if !addr.IsValid() {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(errors.New(a.String())))
	}
	return
}

func (addr Addr) Kind() Kind {
	return addr.kind
}

func (addr Addr) IsValid() bool {
	return addr.kind != KindInvalid
}

func (addr Addr) IsIP() bool {
	return addr.kind == KindInet4 || addr.kind == KindInet6
}

func (addr Addr) IsUnix() bool {
	return addr.kind == KindUnixPath || addr.kind == KindUnixAbstract || addr.kind == KindUnixUnnamed
}

func (addr Addr) AddrPort() netip.AddrPort {
	return addr.ap
}

// Name
// returns the Unix path or abstract name.
func (addr Addr) Name() string {
	return addr.name
}

// Family
// returns the AF_* constant of the variant.
func (addr Addr) Family() int {
	switch addr.kind {
	case KindInet4:
		return syscall.AF_INET
	case KindInet6:
		return syscall.AF_INET6
	case KindUnixPath, KindUnixAbstract, KindUnixUnnamed:
		return syscall.AF_UNIX
	default:
		return syscall.AF_UNSPEC
	}
}

// WithNetwork
// returns a copy reporting network from Network.
func (addr Addr) WithNetwork(network string) Addr {
	addr.network = network
	return addr
}

func (addr Addr) Network() string {
	if addr.network != "" {
		return addr.network
	}
	if addr.IsUnix() {
		return "unix"
	}
	return "ip"
}

func (addr Addr) String() string {
	switch addr.kind {
	case KindInet4, KindInet6:
		return addr.ap.String()
	case KindUnixPath:
		return addr.name
	case KindUnixAbstract:
		return "@" + addr.name
	case KindUnixUnnamed:
		return ""
	default:
		return "<invalid>"
	}
}

// Equal
// compares the address itself and ignores the network label.
func (addr Addr) Equal(other Addr) bool {
	if addr.kind != other.kind {
		return false
	}
	switch addr.kind {
	case KindInet4, KindInet6:
		return addr.ap == other.ap
	case KindUnixPath, KindUnixAbstract:
		return addr.name == other.name
	default:
		return true
	}
}

// WithPort
// replaces the port of an IP address. Unix addresses are returned as is.
func (addr Addr) WithPort(port uint16) Addr {
	if addr.IsIP() {
		addr.ap = netip.AddrPortFrom(addr.ap.Addr(), port)
	}
	return addr
}

// Unspecified
// returns the wildcard address with port 0 of the same IP family.
func (addr Addr) Unspecified() (Addr, error) {
	switch addr.kind {
	case KindInet4:
		return Addr{kind: KindInet4, ap: netip.AddrPortFrom(netip.IPv4Unspecified(), 0), network: addr.network}, nil
	case KindInet6:
		return Addr{kind: KindInet6, ap: netip.AddrPortFrom(netip.IPv6Unspecified(), 0), network: addr.network}, nil
	default:
		return Addr{}, errors.From(ErrFamilyMismatch, errors.WithWrap(errors.New("no unspecified address for "+addr.kind.String())))
	}
}

func (addr Addr) TCPAddr() (*net.TCPAddr, error) {
	if !addr.IsIP() {
		return nil, errors.From(ErrFamilyMismatch, errors.WithWrap(errors.New("not an ip address: "+addr.kind.String())))
	}
	return net.TCPAddrFromAddrPort(addr.ap), nil
}

func (addr Addr) UDPAddr() (*net.UDPAddr, error) {
	if !addr.IsIP() {
		return nil, errors.From(ErrFamilyMismatch, errors.WithWrap(errors.New("not an ip address: "+addr.kind.String())))
	}
	return net.UDPAddrFromAddrPort(addr.ap), nil
}

func (addr Addr) UnixAddr() (*net.UnixAddr, error) {
	if !addr.IsUnix() {
		return nil, errors.From(ErrFamilyMismatch, errors.WithWrap(errors.New("not a unix address: "+addr.kind.String())))
	}
	network := addr.network
	if network == "" {
		network = "unix"
	}
	return &net.UnixAddr{Net: network, Name: addr.String()}, nil
}

// Loopback
// returns the loopback address of the family implied by network.
func Loopback(network string, port uint16) Addr {
	if strings.HasSuffix(network, "6") {
		return AddrFromAddrPort(netip.AddrPortFrom(netip.IPv6Loopback(), port)).WithNetwork(network)
	}
	return AddrFromAddrPort(netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port)).WithNetwork(network)
}

// ParseAddrPort
// parses a numeric "host:port" without name resolution.
func ParseAddrPort(network string, address string) (addr Addr, err error) {
	host, port, splitErr := net.SplitHostPort(strings.TrimSpace(address))
	if splitErr != nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(splitErr))
		return
	}
	p, portErr := strconv.ParseUint(port, 10, 16)
	if portErr != nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(portErr))
		return
	}
	if host == "" {
		addr = Loopback(network, uint16(p))
		return
	}
	ip, ipErr := netip.ParseAddr(host)
	if ipErr != nil {
		err = errors.From(ErrInvalidAddr, errors.WithWrap(ipErr))
		return
	}
	addr = AddrFromAddrPort(netip.AddrPortFrom(ip, uint16(p))).WithNetwork(network)
	return
}
