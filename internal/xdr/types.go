// Package xdr implements the subset of RFC 4506 (External Data
// Representation) needed to read and write ONC RPC wire data: fixed-width
// integers, booleans, and length-prefixed opaque/string data, all aligned
// to 4-byte boundaries and carried big-endian.
//
// It has no dependency on anything above it (no logger, no protocol
// types) so that every wire-level package in this server — RPC headers,
// NFSv3, MOUNT, PORTMAP — can build its own structures directly on top of
// these primitives without a cyclic import.
package xdr
