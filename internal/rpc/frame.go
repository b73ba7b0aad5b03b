package rpc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds the total size of a reassembled RPC message
// (the sum of all fragment bodies in one record). A TCP stream with no such
// limit lets a malicious or buggy peer force unbounded buffering.
const DefaultMaxMessageSize = 1 << 20 // 1 MiB

// lastFragmentBit marks the final fragment of a record in a record-marking
// header (RFC 5531 Section 10).
const lastFragmentBit = 0x80000000

// FragmentReader reassembles the record-marked stream of an RPC connection
// into whole messages. It is not safe for concurrent use: each connection
// owns exactly one reader, read serially.
type FragmentReader struct {
	r          *bufio.Reader
	maxMessage uint32
}

// NewFragmentReader wraps r for record-marked reads. A maxMessage of 0 uses
// DefaultMaxMessageSize.
func NewFragmentReader(r io.Reader, maxMessage uint32) *FragmentReader {
	if maxMessage == 0 {
		maxMessage = DefaultMaxMessageSize
	}
	return &FragmentReader{r: bufio.NewReader(r), maxMessage: maxMessage}
}

// ReadMessage reads one complete RPC message: the concatenation of every
// fragment body up to and including the one with the last-fragment bit set.
func (f *FragmentReader) ReadMessage() ([]byte, error) {
	var message []byte
	for {
		var header [4]byte
		if _, err := io.ReadFull(f.r, header[:]); err != nil {
			return nil, err
		}
		raw := binary.BigEndian.Uint32(header[:])
		last := raw&lastFragmentBit != 0
		length := raw &^ lastFragmentBit

		if uint64(len(message))+uint64(length) > uint64(f.maxMessage) {
			return nil, fmt.Errorf("rpc: message exceeds max size %d bytes", f.maxMessage)
		}

		frag := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(f.r, frag); err != nil {
				return nil, fmt.Errorf("read fragment body: %w", err)
			}
		}
		message = append(message, frag...)

		if last {
			return message, nil
		}
	}
}

// WriteMessage frames message as a single last fragment and writes it to w.
// Replies built by the MakeXReply functions in this package are already
// framed; WriteMessage exists for callers composing a message body directly.
func WriteMessage(w io.Writer, message []byte) error {
	_, err := w.Write(frameSingle(message))
	return err
}
