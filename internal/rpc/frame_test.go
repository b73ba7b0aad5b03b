package rpc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentReaderReadMessage(t *testing.T) {
	t.Run("SingleFragment", func(t *testing.T) {
		message := []byte("hello record")
		framed := frameSingle(message)

		fr := NewFragmentReader(bytes.NewReader(framed), 0)
		got, err := fr.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, message, got)
	})

	t.Run("MultipleFragments", func(t *testing.T) {
		part1 := []byte("first-")
		part2 := []byte("second")

		var stream bytes.Buffer
		header1 := uint32(len(part1))
		stream.Write([]byte{byte(header1 >> 24), byte(header1 >> 16), byte(header1 >> 8), byte(header1)})
		stream.Write(part1)

		header2 := uint32(len(part2)) | 0x80000000
		stream.Write([]byte{byte(header2 >> 24), byte(header2 >> 16), byte(header2 >> 8), byte(header2)})
		stream.Write(part2)

		fr := NewFragmentReader(&stream, 0)
		got, err := fr.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, append(append([]byte{}, part1...), part2...), got)
	})

	t.Run("RejectsOversizedMessage", func(t *testing.T) {
		message := make([]byte, 100)
		framed := frameSingle(message)

		fr := NewFragmentReader(bytes.NewReader(framed), 10)
		_, err := fr.ReadMessage()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds max size")
	})

	t.Run("PropagatesShortReadAsError", func(t *testing.T) {
		fr := NewFragmentReader(bytes.NewReader([]byte{0, 0, 0}), 0)
		_, err := fr.ReadMessage()
		require.Error(t, err)
	})

	t.Run("ReadsSuccessiveMessagesFromSameStream", func(t *testing.T) {
		var stream bytes.Buffer
		stream.Write(frameSingle([]byte("one")))
		stream.Write(frameSingle([]byte("two")))

		fr := NewFragmentReader(&stream, 0)
		first, err := fr.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), first)

		second, err := fr.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), second)
	})
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, []byte("payload")))

	fr := NewFragmentReader(&buf, 0)
	got, err := fr.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}
