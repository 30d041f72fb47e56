package proactor

import (
	"github.com/brickingsoft/proactor/pkg/sys"
)

// Addr
// is the socket address every operation takes and returns.
// See sys.Addr for the variants.
type Addr = sys.Addr

var (
	AddrFromAddrPort = sys.AddrFromAddrPort
	UnixPath         = sys.UnixPath
	UnixAbstract     = sys.UnixAbstract
	UnixUnnamed      = sys.UnixUnnamed
	ParseUnix        = sys.ParseUnix
	ParseAddrPort    = sys.ParseAddrPort
	FromNetAddr      = sys.FromNetAddr
)
