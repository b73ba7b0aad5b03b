package portmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	internalxdr "github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

func encodeMapping(m Mapping) []byte {
	buf := new(bytes.Buffer)
	_ = internalxdr.WriteUint32(buf, m.Prog)
	_ = internalxdr.WriteUint32(buf, m.Vers)
	_ = internalxdr.WriteUint32(buf, m.Prot)
	_ = internalxdr.WriteUint32(buf, m.Port)
	return buf.Bytes()
}

func TestGetPortKnownProgram(t *testing.T) {
	h := NewHandler(11111)
	args := encodeMapping(Mapping{Prog: ProgramNFS, Vers: 3, Prot: ProtoTCP})
	reply, err := h.GetPort(args)
	require.NoError(t, err)
	port, err := internalxdr.DecodeUint32(bytes.NewReader(reply))
	require.NoError(t, err)
	require.Equal(t, uint32(11111), port)
}

func TestGetPortUnknownProgram(t *testing.T) {
	h := NewHandler(11111)
	args := encodeMapping(Mapping{Prog: 999999, Vers: 1, Prot: ProtoTCP})
	reply, err := h.GetPort(args)
	require.NoError(t, err)
	port, err := internalxdr.DecodeUint32(bytes.NewReader(reply))
	require.NoError(t, err)
	require.Equal(t, uint32(0), port)
}

func TestGetPortWrongProtocol(t *testing.T) {
	h := NewHandler(11111)
	args := encodeMapping(Mapping{Prog: ProgramNFS, Vers: 3, Prot: ProtoUDP})
	reply, err := h.GetPort(args)
	require.NoError(t, err)
	port, err := internalxdr.DecodeUint32(bytes.NewReader(reply))
	require.NoError(t, err)
	require.Equal(t, uint32(0), port)
}

func TestDumpListsAllPrograms(t *testing.T) {
	h := NewHandler(2049)
	reply, err := h.Dump()
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	var seen []uint32
	for {
		hasNext, err := internalxdr.DecodeBool(r)
		require.NoError(t, err)
		if !hasNext {
			break
		}
		prog, err := internalxdr.DecodeUint32(r)
		require.NoError(t, err)
		seen = append(seen, prog)
		// skip vers, prot, port
		_, err = internalxdr.DecodeUint32(r)
		require.NoError(t, err)
		_, err = internalxdr.DecodeUint32(r)
		require.NoError(t, err)
		_, err = internalxdr.DecodeUint32(r)
		require.NoError(t, err)
	}
	require.ElementsMatch(t, []uint32{ProgramPortmap, ProgramMount, ProgramNFS}, seen)
}

func TestDecodeMappingRejectsShortInput(t *testing.T) {
	_, err := DecodeMapping([]byte{0, 0, 0})
	require.Error(t, err)
	require.True(t, IsGarbageArgs(err))
}

func TestGetPortMalformedArgsIsGarbageArgs(t *testing.T) {
	h := NewHandler(11111)
	_, err := h.GetPort([]byte{0, 0, 0})
	require.Error(t, err)
	require.True(t, IsGarbageArgs(err))
}

func TestDispatchUnsupportedProcedure(t *testing.T) {
	h := NewHandler(11111)
	_, err := h.Dispatch(ProcSet, nil)
	require.Error(t, err)
}
