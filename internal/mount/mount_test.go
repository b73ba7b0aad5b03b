package mount

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/handle"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/memvfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

func newTestHandler(t *testing.T) (*Handler, *CallContext) {
	t.Helper()
	fs := memvfs.New(vfs.ReadWrite)
	h := NewHandler(fs, handle.NewCodec(handle.Generation{1, 2, 3, 4, 5, 6, 7, 8}))
	cc := &CallContext{Context: context.Background(), ClientAddr: "127.0.0.1:4321"}
	return h, cc
}

func encodeMntArgs(path string) []byte {
	buf := new(bytes.Buffer)
	_ = xdr.WriteXDRString(buf, path)
	return buf.Bytes()
}

func TestMntKnownExportReturnsRootHandle(t *testing.T) {
	h, cc := newTestHandler(t)
	reply, err := h.Dispatch(cc, ProcMnt, encodeMntArgs(ExportPath))
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	status, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	fh, err := xdr.DecodeOpaque(r)
	require.NoError(t, err)
	require.Len(t, fh, handle.Size)

	count, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)
}

func TestMntUnknownExportIsNoEnt(t *testing.T) {
	h, cc := newTestHandler(t)
	reply, err := h.Dispatch(cc, ProcMnt, encodeMntArgs("/nope"))
	require.NoError(t, err)

	status, err := xdr.DecodeUint32(bytes.NewReader(reply))
	require.NoError(t, err)
	require.Equal(t, StatusNoEnt, status)
}

func TestDumpReflectsActiveMounts(t *testing.T) {
	h, cc := newTestHandler(t)
	_, err := h.Dispatch(cc, ProcMnt, encodeMntArgs(ExportPath))
	require.NoError(t, err)

	reply, err := h.Dispatch(cc, ProcDump, nil)
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	hasNext, err := xdr.DecodeBool(r)
	require.NoError(t, err)
	require.True(t, hasNext)

	host, err := xdr.DecodeString(r)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)

	dirPath, err := xdr.DecodeString(r)
	require.NoError(t, err)
	require.Equal(t, ExportPath, dirPath)

	hasNext, err = xdr.DecodeBool(r)
	require.NoError(t, err)
	require.False(t, hasNext)
}

func TestUmntRemovesMountFromDump(t *testing.T) {
	h, cc := newTestHandler(t)
	_, err := h.Dispatch(cc, ProcMnt, encodeMntArgs(ExportPath))
	require.NoError(t, err)

	_, err = h.Dispatch(cc, ProcUmnt, encodeMntArgs(ExportPath))
	require.NoError(t, err)

	reply, err := h.Dispatch(cc, ProcDump, nil)
	require.NoError(t, err)

	hasNext, err := xdr.DecodeBool(bytes.NewReader(reply))
	require.NoError(t, err)
	require.False(t, hasNext)
}

func TestMntMalformedArgsIsGarbageArgs(t *testing.T) {
	h, cc := newTestHandler(t)
	// A string argument needs at least a 4-byte length prefix; one stray
	// byte can never decode.
	_, err := h.Dispatch(cc, ProcMnt, []byte{0x01})
	require.Error(t, err)
	require.True(t, IsGarbageArgs(err))
}

func TestExportListsSingleRoot(t *testing.T) {
	h, cc := newTestHandler(t)
	reply, err := h.Dispatch(cc, ProcExport, nil)
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	hasNext, err := xdr.DecodeBool(r)
	require.NoError(t, err)
	require.True(t, hasNext)

	dirPath, err := xdr.DecodeString(r)
	require.NoError(t, err)
	require.Equal(t, ExportPath, dirPath)
}
