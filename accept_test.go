//go:build linux

package proactor_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/sys"
	"github.com/stretchr/testify/require"
)

func TestProcessor_AcceptUnixAbstract(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	addr := proactor.UnixAbstract(abstractName(t))
	ln, err := proactor.ListenUnix(addr)
	require.NoError(t, err)
	defer ln.Close()
	require.True(t, ln.LocalAddr().Equal(addr))

	type accepted struct {
		h    *proactor.Handle
		peer proactor.Addr
		err  error
	}
	done := make(chan accepted, 1)
	go func() {
		h, peer, acceptErr := p.AcceptUnix(ctx, ln)
		done <- accepted{h, peer, acceptErr}
	}()

	conn, err := p.ConnectUnix(ctx, addr)
	require.NoError(t, err)
	defer conn.Close()
	require.True(t, conn.RemoteAddr().Equal(addr))

	a := <-done
	require.NoError(t, a.err)
	defer a.h.Close()
	require.Equal(t, sys.KindUnixUnnamed, a.peer.Kind())
	require.Equal(t, "unix", a.h.Network())

	_, err = p.Send(ctx, conn, []byte("over unix"))
	require.NoError(t, err)
	b := make([]byte, 16)
	n, err := p.Recv(ctx, a.h, b)
	require.NoError(t, err)
	require.Equal(t, "over unix", string(b[:n]))
}

func TestProcessor_AcceptUnixAbstractPeer(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	addr := proactor.UnixAbstract(abstractName(t))
	ln, err := proactor.ListenUnix(addr)
	require.NoError(t, err)
	defer ln.Close()

	local := proactor.UnixAbstract(abstractName(t) + "-client")
	done := make(chan error, 1)
	go func() {
		conn, connErr := p.ConnectUnixLocal(ctx, local, addr)
		if connErr == nil {
			if !conn.LocalAddr().Equal(local) {
				connErr = fmt.Errorf("unexpected local %s", conn.LocalAddr())
			}
			_ = conn.Close()
		}
		done <- connErr
	}()

	h, peer, err := p.AcceptUnix(ctx, ln)
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, sys.KindUnixAbstract, peer.Kind())
	require.True(t, peer.Equal(local), "%s != %s", peer, local)
	require.NoError(t, <-done)
}

func TestProcessor_AcceptUnixPathPeer(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	ln, err := proactor.ListenUnix(proactor.UnixPath(t.TempDir() + "/ln.sock"))
	require.NoError(t, err)
	defer ln.Close()
	require.Equal(t, sys.KindUnixPath, ln.LocalAddr().Kind())

	done := make(chan error, 1)
	go func() {
		conn, connErr := p.ConnectUnix(ctx, ln.LocalAddr())
		if connErr == nil {
			_ = conn.Close()
		}
		done <- connErr
	}()

	h, peer, err := p.AcceptUnix(ctx, ln)
	require.NoError(t, err)
	defer h.Close()
	require.True(t, peer.IsUnix())
	require.NoError(t, <-done)
}

func TestProcessor_AcceptTCPOnUnixListener(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	addr := proactor.UnixAbstract(abstractName(t))
	ln, err := proactor.ListenUnix(addr)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, connErr := p.ConnectUnix(ctx, addr)
		if connErr == nil {
			_ = conn.Close()
		}
	}()

	_, _, err = p.AcceptTCP(ctx, ln)
	require.True(t, proactor.IsConversion(err), err)
}

func TestProcessor_AcceptAbandoned(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	ln, err := proactor.ListenTCP("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	_, _, err = p.AcceptTCP(short, ln)
	cancel()
	require.True(t, proactor.IsUncompleted(err), err)
	require.Equal(t, 1, p.Ring().Inflight())

	// the pending accept takes this connection and closes it
	first, err := p.ConnectTCPAddr(ctx, ln.LocalAddr())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool {
		return p.Ring().Inflight() == 0
	}, 2*time.Second, time.Millisecond)
	n, err := p.Recv(ctx, first, make([]byte, 1))
	require.NoError(t, err)
	require.Equal(t, 0, n)

	second, err := p.ConnectTCPAddr(ctx, ln.LocalAddr())
	require.NoError(t, err)
	defer second.Close()
	h, peer, err := p.AcceptTCP(ctx, ln)
	require.NoError(t, err)
	defer h.Close()
	require.True(t, peer.Equal(second.LocalAddr()))
}
