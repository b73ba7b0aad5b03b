package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxOpaqueLength caps a single length-prefixed field read from the wire.
// No NFSv3 argument or reply carries opaque data anywhere near this size;
// the limit exists so a corrupt or hostile length prefix can't make the
// server allocate an unbounded buffer.
const maxOpaqueLength = 1024 * 1024

// DecodeOpaque reads an XDR variable-length opaque field: a uint32 byte
// count, that many bytes, then 0-3 zero padding bytes bringing the total
// to a 4-byte multiple (RFC 4506 §4.10).
func DecodeOpaque(reader io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > maxOpaqueLength {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, maxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	// Padding is at most 3 bytes, so a stack array avoids an allocation
	// on the common case where length isn't already a multiple of 4.
	if padding := (4 - (length % 4)) % 4; padding > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(reader, padBuf[:padding]); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}

// DecodeString reads an XDR string: the same wire shape as DecodeOpaque,
// interpreted as UTF-8 text rather than raw bytes (RFC 4506 §4.11).
func DecodeString(reader io.Reader) (string, error) {
	data, err := DecodeOpaque(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeUint32 reads a big-endian uint32 (RFC 4506 §4.1).
func DecodeUint32(reader io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

// DecodeUint64 reads a big-endian uint64 (RFC 4506 §4.5, "hyper").
func DecodeUint64(reader io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return v, nil
}

// DecodeInt32 reads a big-endian two's-complement int32 (RFC 4506 §4.1).
func DecodeInt32(reader io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read int32: %w", err)
	}
	return v, nil
}

// DecodeBool reads an XDR boolean: a uint32 where zero is false and any
// nonzero value (conformant encoders only ever write 1) is true.
func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
