package rpc

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// CallMessage is a decoded RPC call header (RFC 5531 Section 8, call_body),
// plus the remaining undecoded procedure arguments.
type CallMessage struct {
	XID       uint32
	RPCVers   uint32
	Program   uint32
	Version   uint32
	Procedure uint32
	Cred      Credential
	Verf      Credential

	// Args is the procedure-specific payload following the header: the
	// dispatcher hands this to the matching handler for decoding.
	Args []byte
}

// ReadCall decodes the RPC call header from a single complete RPC message
// (the reassembled body of one or more fragments). It does not decode
// procedure arguments.
func ReadCall(message []byte) (*CallMessage, error) {
	r := bytes.NewReader(message)

	xid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read xid: %w", err)
	}
	msgType, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read msg_type: %w", err)
	}
	if msgType != Call {
		return nil, fmt.Errorf("not a call message: msg_type=%d", msgType)
	}
	rpcvers, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read rpcvers: %w", err)
	}
	program, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	version, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	procedure, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read procedure: %w", err)
	}
	cred, err := readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	verf, err := readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("read verifier: %w", err)
	}

	remaining := make([]byte, r.Len())
	if _, err := r.Read(remaining); err != nil && r.Len() > 0 {
		return nil, fmt.Errorf("read args: %w", err)
	}

	return &CallMessage{
		XID:       xid,
		RPCVers:   rpcvers,
		Program:   program,
		Version:   version,
		Procedure: procedure,
		Cred:      cred,
		Verf:      verf,
		Args:      remaining,
	}, nil
}

// readOpaqueAuth decodes one opaque_auth structure: a flavor followed by a
// variable-length opaque body (RFC 5531 Section 8.2).
func readOpaqueAuth(r *bytes.Reader) (Credential, error) {
	flavor, err := xdr.DecodeUint32(r)
	if err != nil {
		return Credential{}, err
	}
	body, err := xdr.DecodeOpaque(r)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Flavor: flavor, Body: body}, nil
}
