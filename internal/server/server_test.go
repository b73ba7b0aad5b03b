package server

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/memvfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/portmap"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/rpc"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

func encodeCall(t *testing.T, xid, program, version, procedure uint32, args []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, xid))
	require.NoError(t, xdr.WriteUint32(buf, rpc.Call))
	require.NoError(t, xdr.WriteUint32(buf, rpc.RPCVersion))
	require.NoError(t, xdr.WriteUint32(buf, program))
	require.NoError(t, xdr.WriteUint32(buf, version))
	require.NoError(t, xdr.WriteUint32(buf, procedure))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthNone))
	require.NoError(t, xdr.WriteXDROpaque(buf, nil))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthNone))
	require.NoError(t, xdr.WriteXDROpaque(buf, nil))
	buf.Write(args)
	return buf.Bytes()
}

func newTestServer() *Server {
	fs := memvfs.New(vfs.ReadWrite)
	return New(fs, Config{})
}

func TestHandleCallNFSNullSucceeds(t *testing.T) {
	s := newTestServer()
	message := encodeCall(t, 1, rpc.ProgramNFS, rpc.NFSVersion, 0, nil)
	call, err := rpc.ReadCall(message)
	require.NoError(t, err)

	reply := s.handleCall(context.Background(), "127.0.0.1:1", call)
	require.NotNil(t, reply)
}

func TestHandleCallRejectsBadRPCVersion(t *testing.T) {
	s := newTestServer()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, 7))
	require.NoError(t, xdr.WriteUint32(buf, rpc.Call))
	require.NoError(t, xdr.WriteUint32(buf, 9)) // bad rpcvers
	require.NoError(t, xdr.WriteUint32(buf, rpc.ProgramNFS))
	require.NoError(t, xdr.WriteUint32(buf, rpc.NFSVersion))
	require.NoError(t, xdr.WriteUint32(buf, 0))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthNone))
	require.NoError(t, xdr.WriteXDROpaque(buf, nil))
	require.NoError(t, xdr.WriteUint32(buf, rpc.AuthNone))
	require.NoError(t, xdr.WriteXDROpaque(buf, nil))

	call, err := rpc.ReadCall(buf.Bytes())
	require.NoError(t, err)

	reply := s.handleCall(context.Background(), "127.0.0.1:1", call)
	require.NotNil(t, reply)
}

func TestHandleCallUnknownProgramIsProgUnavail(t *testing.T) {
	s := newTestServer()
	message := encodeCall(t, 2, 999999, 1, 0, nil)
	call, err := rpc.ReadCall(message)
	require.NoError(t, err)

	reply := s.handleCall(context.Background(), "127.0.0.1:1", call)
	require.NotNil(t, reply)

	status := acceptStatusOf(t, reply)
	require.Equal(t, rpc.ProgUnavail, status)
}

func TestHandleCallWrongVersionIsProgMismatch(t *testing.T) {
	s := newTestServer()
	message := encodeCall(t, 3, rpc.ProgramNFS, 99, 0, nil)
	call, err := rpc.ReadCall(message)
	require.NoError(t, err)

	reply := s.handleCall(context.Background(), "127.0.0.1:1", call)
	require.NotNil(t, reply)

	status := acceptStatusOf(t, reply)
	require.Equal(t, rpc.ProgMismatch, status)
}

func TestHandleCallDuplicateWriteReplaysResponse(t *testing.T) {
	s := newTestServer()
	fs := s.nfs.FS
	ctx := context.Background()
	root := fs.RootDir(ctx)
	fileID, _, err := fs.Create(ctx, root, "f", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)

	handleBytes := s.nfs.Codec.Encode(fileID)
	args := new(bytes.Buffer)
	require.NoError(t, xdr.WriteXDROpaque(args, handleBytes))
	require.NoError(t, xdr.WriteUint64(args, 0))
	require.NoError(t, xdr.WriteUint32(args, 5))
	require.NoError(t, xdr.WriteUint32(args, 0)) // UNSTABLE
	require.NoError(t, xdr.WriteXDROpaque(args, []byte("hello")))

	message := encodeCall(t, 55, rpc.ProgramNFS, rpc.NFSVersion, 7, args.Bytes()) // WRITE
	call, err := rpc.ReadCall(message)
	require.NoError(t, err)

	first := s.handleCall(ctx, "127.0.0.1:2", call)
	require.NotNil(t, first)

	second := s.handleCall(ctx, "127.0.0.1:2", call)
	require.NotNil(t, second)
	require.Equal(t, first, second)
	require.Equal(t, 1, s.DRCSize())
}

func TestServeAcceptsConnectionsAndAnswersPortmapNull(t *testing.T) {
	s := newTestServer()
	s.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Serve(ctx)
		close(done)
	}()

	var addr string
	for i := 0; i < 100 && s.listener == nil; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, s.listener)
	addr = s.listener.Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	message := encodeCall(t, 77, rpc.ProgramPortmap, rpc.PortmapVersion, portmap.ProcNull, nil)
	require.NoError(t, rpc.WriteMessage(conn, message))

	reader := rpc.NewFragmentReader(conn, 0)
	reply, err := reader.ReadMessage()
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestStopInterruptsIdleConnectionQuickly(t *testing.T) {
	s := newTestServer()
	s.cfg.Addr = "127.0.0.1:0"
	s.cfg.IdleTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Serve(ctx)
		close(done)
	}()

	for i := 0; i < 100 && s.listener == nil; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, s.listener)

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 100 && s.connCount.Load() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, int32(1), s.connCount.Load())

	s.Stop()

	connClosed := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
		close(connClosed)
	}()

	select {
	case <-connClosed:
	case <-time.After(time.Second):
		t.Fatal("idle connection was not interrupted promptly by Stop")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestHandleCallMalformedNFSArgsIsGarbageArgs(t *testing.T) {
	s := newTestServer()
	// GETATTR's argument is a file handle with a 4-byte length prefix;
	// claiming 8 bytes of opaque data and supplying none can never decode.
	args := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(args, 8))
	message := encodeCall(t, 4, rpc.ProgramNFS, rpc.NFSVersion, 1, args.Bytes()) // GETATTR
	call, err := rpc.ReadCall(message)
	require.NoError(t, err)

	reply := s.handleCall(context.Background(), "127.0.0.1:1", call)
	require.NotNil(t, reply)

	status := acceptStatusOf(t, reply)
	require.Equal(t, rpc.GarbageArgs, status)
}

// acceptStatusOf decodes the accept_stat field out of a framed
// MSG_ACCEPTED reply for assertions.
func acceptStatusOf(t *testing.T, framed []byte) uint32 {
	t.Helper()
	require.True(t, len(framed) > 4)
	body := framed[4:]
	r := bytes.NewReader(body)
	_, err := xdr.DecodeUint32(r) // xid
	require.NoError(t, err)
	_, err = xdr.DecodeUint32(r) // msg_type
	require.NoError(t, err)
	_, err = xdr.DecodeUint32(r) // reply_stat
	require.NoError(t, err)
	_, err = xdr.DecodeUint32(r) // verifier flavor
	require.NoError(t, err)
	_, err = xdr.DecodeOpaque(r) // verifier body
	require.NoError(t, err)
	status, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	return status
}
