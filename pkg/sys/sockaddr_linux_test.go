//go:build linux

package sys_test

import (
	"net/netip"
	"syscall"
	"testing"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/sys"
	"github.com/stretchr/testify/require"
)

func TestEncodeSockaddr_Inet4(t *testing.T) {
	addr := sys.AddrFromAddrPort(netip.MustParseAddrPort("127.0.0.1:8080"))
	raw, rawLen, err := sys.EncodeSockaddr(addr)
	require.NoError(t, err)
	require.EqualValues(t, syscall.SizeofSockaddrInet4, rawLen)
	sa := (*syscall.RawSockaddrInet4)(unsafe.Pointer(raw))
	require.EqualValues(t, syscall.AF_INET, sa.Family)
	port := (*[2]byte)(unsafe.Pointer(&sa.Port))
	require.Equal(t, [2]byte{0x1f, 0x90}, *port)

	decoded, err := sys.DecodeSockaddr(raw, rawLen)
	require.NoError(t, err)
	require.True(t, addr.Equal(decoded))
}

func TestEncodeSockaddr_Inet6(t *testing.T) {
	addr := sys.AddrFromAddrPort(netip.MustParseAddrPort("[2001:db8::1]:65535"))
	raw, rawLen, err := sys.EncodeSockaddr(addr)
	require.NoError(t, err)
	require.EqualValues(t, syscall.SizeofSockaddrInet6, rawLen)
	decoded, err := sys.DecodeSockaddr(raw, rawLen)
	require.NoError(t, err)
	require.True(t, addr.Equal(decoded))
}

func TestUnixAddrFromRaw_Variants(t *testing.T) {
	cases := []sys.Addr{
		sys.UnixPath("/tmp/proactor.sock"),
		sys.UnixAbstract("proactor"),
		sys.UnixAbstract("with\x00nul"),
		sys.UnixUnnamed(),
	}
	for _, addr := range cases {
		raw, rawLen, err := sys.EncodeSockaddr(addr)
		require.NoError(t, err, addr.Kind().String())
		decoded, err := sys.UnixAddrFromRaw(raw, rawLen)
		require.NoError(t, err, addr.Kind().String())
		require.Equal(t, addr.Kind(), decoded.Kind())
		require.Equal(t, addr.Name(), decoded.Name())
	}
}

func TestUnixAddrFromRaw_Lengths(t *testing.T) {
	raw := &syscall.RawSockaddrAny{}
	decoded, err := sys.UnixAddrFromRaw(raw, 0)
	require.NoError(t, err)
	require.Equal(t, sys.KindUnixUnnamed, decoded.Kind())

	// a zeroed path with only the family is unnamed, not an empty abstract name
	raw.Addr.Family = syscall.AF_UNIX
	decoded, err = sys.UnixAddrFromRaw(raw, 2)
	require.NoError(t, err)
	require.Equal(t, sys.KindUnixUnnamed, decoded.Kind())

	decoded, err = sys.UnixAddrFromRaw(raw, 3)
	require.NoError(t, err)
	require.Equal(t, sys.KindUnixAbstract, decoded.Kind())
	require.Equal(t, "", decoded.Name())
}

func TestUnixAddrFromRaw_FamilyMismatch(t *testing.T) {
	addr := sys.AddrFromAddrPort(netip.MustParseAddrPort("127.0.0.1:1"))
	raw, rawLen, err := sys.EncodeSockaddr(addr)
	require.NoError(t, err)
	_, err = sys.UnixAddrFromRaw(raw, rawLen)
	require.True(t, errors.Is(err, sys.ErrFamilyMismatch))
}

func TestEncodeSockaddr_Invalid(t *testing.T) {
	_, _, err := sys.EncodeSockaddr(sys.Addr{})
	require.True(t, errors.Is(err, sys.ErrInvalidAddr))

	long := make([]byte, 108)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err = sys.EncodeSockaddr(sys.UnixPath(string(long)))
	require.True(t, errors.Is(err, sys.ErrInvalidAddr))
}
