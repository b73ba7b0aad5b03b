package rpc

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// writeNullVerifier writes the verifier every reply carries: AUTH_NONE with an empty
// body (RFC 5531 Section 8.2). The server never issues a non-null verifier
// since it speaks no security flavor that requires one.
func writeNullVerifier(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, AuthNone); err != nil {
		return err
	}
	return xdr.WriteXDROpaque(buf, nil)
}

// frameSingle wraps a fully-serialized RPC message in a single last
// fragment (RFC 5531 Section 10): a 4-byte big-endian header with the high
// bit set, followed by the message bytes.
func frameSingle(message []byte) []byte {
	framed := make([]byte, 4+len(message))
	header := uint32(len(message)) | 0x80000000
	framed[0] = byte(header >> 24)
	framed[1] = byte(header >> 16)
	framed[2] = byte(header >> 8)
	framed[3] = byte(header)
	copy(framed[4:], message)
	return framed
}

// acceptedHeader writes xid, msg_type=REPLY, reply_stat=MSG_ACCEPTED, and
// the null verifier.
func acceptedHeader(buf *bytes.Buffer, xid uint32) error {
	if err := xdr.WriteUint32(buf, xid); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, Reply); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, MsgAccepted); err != nil {
		return err
	}
	return writeNullVerifier(buf)
}

// MakeSuccessReply wraps a procedure's XDR-encoded result in an
// MSG_ACCEPTED/SUCCESS RPC reply and frames it as a single fragment.
func MakeSuccessReply(xid uint32, body []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, Success); err != nil {
		return nil, err
	}
	if _, err := buf.Write(body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeProgMismatchReply builds a PROG_MISMATCH reply: the call named a
// program/version pair this server does not implement. low/high describe
// the version range this server does support for that program.
func MakeProgMismatchReply(xid uint32, low, high uint32) ([]byte, error) {
	if low > high {
		return nil, fmt.Errorf("invalid version range: low (%d) > high (%d)", low, high)
	}
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, ProgMismatch); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, low); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, high); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeProgUnavailReply builds a reply for a call naming a program number
// this server does not serve at all.
func MakeProgUnavailReply(xid uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, ProgUnavail); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeProcUnavailReply builds a reply for a call naming a procedure number
// unknown within an otherwise-supported (program, version).
func MakeProcUnavailReply(xid uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, ProcUnavail); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeGarbageArgsReply builds a reply indicating the call's arguments could
// not be decoded (RFC 5531's GARBAGE_ARGS).
func MakeGarbageArgsReply(xid uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, GarbageArgs); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeSystemErrReply builds a reply for an internal failure that is not a
// protocol-level rejection (RFC 5531's SYSTEM_ERR) — used when a handler
// itself fails catastrophically rather than returning a procedure-level
// nfsstat3/mountstat3 error.
func MakeSystemErrReply(xid uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acceptedHeader(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, SystemErr); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}

// MakeRPCMismatchReply builds an MSG_DENIED/RPC_MISMATCH reply for a call
// whose rpcvers is not 2.
func MakeRPCMismatchReply(xid uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := xdr.WriteUint32(buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, MsgDenied); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, RPCMismatch); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, RPCVersion); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, RPCVersion); err != nil {
		return nil, err
	}
	return frameSingle(buf.Bytes()), nil
}
