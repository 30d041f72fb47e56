//go:build linux

package proactor_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/sys"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func abstractName(t *testing.T) string {
	return fmt.Sprintf("proactor-%s-%d-%d", t.Name(), os.Getpid(), time.Now().UnixNano())
}

func TestProcessor_SendToRecvFromUDP(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	server, err := proactor.BindUDP("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()
	client, err := proactor.BindUDP("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	n, err := p.SendTo(ctx, client, []byte("ping"), server.LocalAddr())
	require.NoError(t, err)
	require.Equal(t, 4, n)

	b := make([]byte, 16)
	n, from, err := p.PeekFrom(ctx, server, b)
	require.NoError(t, err)
	require.Equal(t, "ping", string(b[:n]))
	require.True(t, from.Equal(client.LocalAddr()))

	clear(b)
	n, from, err = p.RecvFrom(ctx, server, b)
	require.NoError(t, err)
	require.Equal(t, "ping", string(b[:n]))
	require.True(t, from.Equal(client.LocalAddr()))
	require.Equal(t, "udp", from.Network())

	_, err = p.SendTo(ctx, server, []byte("pong"), from)
	require.NoError(t, err)
	n, err = p.Recv(ctx, client, b)
	require.NoError(t, err)
	require.Equal(t, "pong", string(b[:n]))
}

func TestProcessor_SendToWrongFamily(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)
	client, err := proactor.BindUDP("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	_, err = p.SendTo(ctx, client, []byte("x"), proactor.UnixPath("/tmp/nope"))
	require.True(t, proactor.IsConversion(err), err)
	_, err = p.SendToUnix(ctx, client, []byte("x"), client.LocalAddr())
	require.True(t, proactor.IsConversion(err), err)
}

func TestProcessor_UnixgramAbstract(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	name := abstractName(t) + "\x00tail"
	server, err := proactor.BindUnixgram(proactor.UnixAbstract(name))
	require.NoError(t, err)
	defer server.Close()
	require.Equal(t, sys.KindUnixAbstract, server.LocalAddr().Kind())
	require.Equal(t, name, server.LocalAddr().Name())

	client, err := proactor.BindUnixgram(proactor.UnixUnnamed())
	require.NoError(t, err)
	defer client.Close()
	// autobind
	require.Equal(t, sys.KindUnixAbstract, client.LocalAddr().Kind())

	_, err = p.SendToUnix(ctx, client, []byte("hello"), server.LocalAddr())
	require.NoError(t, err)

	b := make([]byte, 16)
	n, from, err := p.RecvFromUnix(ctx, server, b)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b[:n]))
	require.True(t, from.Equal(client.LocalAddr()), "%q != %q", from.Name(), client.LocalAddr().Name())
}

func TestProcessor_UnixgramUnnamedSender(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	server, err := proactor.BindUnixgram(proactor.UnixAbstract(abstractName(t)))
	require.NoError(t, err)
	defer server.Close()

	fd, err := sys.NewSocket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	client, err := proactor.Wrap(fd, "")
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, "unixgram", client.Network())
	require.Equal(t, sys.KindUnixUnnamed, client.LocalAddr().Kind())

	_, err = p.SendToUnix(ctx, client, []byte("anon"), server.LocalAddr())
	require.NoError(t, err)

	b := make([]byte, 16)
	n, from, err := p.PeekFromUnix(ctx, server, b)
	require.NoError(t, err)
	require.Equal(t, "anon", string(b[:n]))
	require.Equal(t, sys.KindUnixUnnamed, from.Kind())

	_, _, err = p.RecvFrom(ctx, server, b)
	require.True(t, proactor.IsConversion(err), err)
}

func TestProcessor_UnixgramPath(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)
	dir := t.TempDir()

	server, err := proactor.BindUnixgram(proactor.UnixPath(dir + "/server.sock"))
	require.NoError(t, err)
	defer server.Close()
	client, err := proactor.BindUnixgram(proactor.UnixPath(dir + "/client.sock"))
	require.NoError(t, err)
	defer client.Close()

	_, err = p.SendToUnix(ctx, client, []byte("path"), proactor.UnixPath(dir+"/server.sock"))
	require.NoError(t, err)

	b := make([]byte, 16)
	n, from, err := p.RecvFromUnix(ctx, server, b)
	require.NoError(t, err)
	require.Equal(t, "path", string(b[:n]))
	require.Equal(t, sys.KindUnixPath, from.Kind())
	require.Equal(t, dir+"/client.sock", from.Name())
}

func TestProcessor_RecvFromStream(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	ln, err := proactor.ListenTCP("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conn, err := p.ConnectTCPAddr(ctx, ln.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()
	h, _, err := p.AcceptTCP(ctx, ln)
	require.NoError(t, err)
	defer h.Close()

	_, err = p.Send(ctx, conn, []byte("stream"))
	require.NoError(t, err)

	b := make([]byte, 16)
	n, from, err := p.RecvFrom(ctx, h, b)
	require.NoError(t, err)
	require.Equal(t, "stream", string(b[:n]))
	require.True(t, from.Equal(conn.LocalAddr()), "%s != %s", from, conn.LocalAddr())
}
