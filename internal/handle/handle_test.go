package handle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(Generation{1, 2, 3, 4, 5, 6, 7, 8})

	fh := codec.Encode(vfs.FileID(42))
	require.Len(t, fh, Size)

	id, err := codec.Decode(fh)
	require.NoError(t, err)
	require.Equal(t, vfs.FileID(42), id)
}

func TestDecodeWrongGenerationIsStale(t *testing.T) {
	encoder := NewCodec(Generation{1, 1, 1, 1, 1, 1, 1, 1})
	decoder := NewCodec(Generation{2, 2, 2, 2, 2, 2, 2, 2})

	fh := encoder.Encode(vfs.FileID(7))

	_, err := decoder.Decode(fh)
	require.ErrorIs(t, err, ErrStale)
}

func TestDecodeWrongLengthIsMalformed(t *testing.T) {
	codec := NewCodec(Generation{})

	_, err := codec.Decode([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestReservedBytesAreZero(t *testing.T) {
	codec := NewCodec(Generation{})
	fh := codec.Encode(vfs.FileID(1))
	for _, b := range fh[16:32] {
		require.Zero(t, b)
	}
}

func TestTwoGenerationsDiffer(t *testing.T) {
	require.NotEqual(t, NewGeneration(), NewGeneration())
}
