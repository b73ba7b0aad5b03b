package rpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

func encodeCall(t *testing.T, xid, program, version, procedure uint32, cred, verf Credential, args []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, xdr.WriteUint32(buf, xid))
	require.NoError(t, xdr.WriteUint32(buf, Call))
	require.NoError(t, xdr.WriteUint32(buf, RPCVersion))
	require.NoError(t, xdr.WriteUint32(buf, program))
	require.NoError(t, xdr.WriteUint32(buf, version))
	require.NoError(t, xdr.WriteUint32(buf, procedure))

	require.NoError(t, xdr.WriteUint32(buf, cred.Flavor))
	require.NoError(t, xdr.WriteXDROpaque(buf, cred.Body))
	require.NoError(t, xdr.WriteUint32(buf, verf.Flavor))
	require.NoError(t, xdr.WriteXDROpaque(buf, verf.Body))

	buf.Write(args)
	return buf.Bytes()
}

func TestReadCall(t *testing.T) {
	t.Run("DecodesHeaderAndArgs", func(t *testing.T) {
		args := []byte{0x00, 0x00, 0x00, 0x07}
		message := encodeCall(t, 42, ProgramNFS, NFSVersion, 1,
			Credential{Flavor: AuthNone}, Credential{Flavor: AuthNone}, args)

		call, err := ReadCall(message)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), call.XID)
		assert.Equal(t, uint32(RPCVersion), call.RPCVers)
		assert.Equal(t, uint32(ProgramNFS), call.Program)
		assert.Equal(t, uint32(NFSVersion), call.Version)
		assert.Equal(t, uint32(1), call.Procedure)
		assert.Equal(t, args, call.Args)
	})

	t.Run("PreservesCredentialBody", func(t *testing.T) {
		credBody := []byte{1, 2, 3, 4}
		message := encodeCall(t, 1, ProgramMount, MountVersion, 0,
			Credential{Flavor: AuthUnix, Body: credBody}, Credential{Flavor: AuthNone}, nil)

		call, err := ReadCall(message)
		require.NoError(t, err)
		assert.Equal(t, uint32(AuthUnix), call.Cred.Flavor)
		assert.Equal(t, credBody, call.Cred.Body)
	})

	t.Run("RejectsReplyMessage", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, xdr.WriteUint32(buf, 1))
		require.NoError(t, xdr.WriteUint32(buf, Reply))

		_, err := ReadCall(buf.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a call message")
	})

	t.Run("RejectsTruncatedHeader", func(t *testing.T) {
		_, err := ReadCall([]byte{0, 0, 0, 1})
		require.Error(t, err)
	})

	t.Run("HandlesEmptyArgs", func(t *testing.T) {
		message := encodeCall(t, 5, ProgramPortmap, PortmapVersion, 0,
			Credential{Flavor: AuthNone}, Credential{Flavor: AuthNone}, nil)

		call, err := ReadCall(message)
		require.NoError(t, err)
		assert.Empty(t, call.Args)
	})
}
