package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WriteXDROpaque writes an XDR variable-length opaque field: a uint32
// byte count, data, then zero padding to the next 4-byte boundary
// (RFC 4506 §4.9). Used for binary payloads such as file handles.
func WriteXDROpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write opaque length: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write opaque data: %w", err)
	}
	return WriteXDRPadding(buf, length)
}

// WriteXDRString writes an XDR string using the same length+data+padding
// shape as WriteXDROpaque (RFC 4506 §4.11).
func WriteXDRString(buf *bytes.Buffer, s string) error {
	length := uint32(len(s))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write string length: %w", err)
	}
	if _, err := buf.Write([]byte(s)); err != nil {
		return fmt.Errorf("write string data: %w", err)
	}
	return WriteXDRPadding(buf, length)
}

// WriteXDRPadding emits the 0-3 zero bytes needed to bring dataLen up to
// a 4-byte multiple, per the alignment rule in RFC 4506 §4.11.
func WriteXDRPadding(buf *bytes.Buffer, dataLen uint32) error {
	padding := (4 - (dataLen % 4)) % 4
	if padding > 0 {
		if _, err := buf.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}
	return nil
}

// WriteUint32 writes v as a big-endian uint32 (RFC 4506 §4.1).
func WriteUint32(buf *bytes.Buffer, v uint32) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}
	return nil
}

// WriteUint64 writes v as a big-endian uint64 (RFC 4506 §4.5, "hyper").
func WriteUint64(buf *bytes.Buffer, v uint64) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint64: %w", err)
	}
	return nil
}

// WriteInt32 writes v as a big-endian two's-complement int32.
func WriteInt32(buf *bytes.Buffer, v int32) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write int32: %w", err)
	}
	return nil
}

// WriteInt64 writes v as a big-endian two's-complement int64.
func WriteInt64(buf *bytes.Buffer, v int64) error {
	if err := binary.Write(buf, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write int64: %w", err)
	}
	return nil
}

// WriteBool writes v as an XDR boolean: 1 for true, 0 for false.
func WriteBool(buf *bytes.Buffer, v bool) error {
	var val uint32
	if v {
		val = 1
	}
	return WriteUint32(buf, val)
}
