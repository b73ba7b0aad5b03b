// Package portmap implements the minimal ONC-RPC portmap/rpcbind service
// (RFC 1833, version 2) this server needs: enough for a client that probes
// rpcbind before mounting to discover where NFS and MOUNT are listening.
//
// Only NULL, GETPORT, and DUMP are served. SET/UNSET/CALLIT are omitted:
// this server always advertises its own fixed set of programs on its own
// port, so there is nothing for a client to register, and CALLIT's
// RPC-forwarding behavior is a well-known amplification vector best left
// out entirely rather than guarded.
package portmap

import (
	"bytes"
	"errors"
	"fmt"

	internalxdr "github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// ErrGarbageArgs marks a portmap argument that could not be decoded at
// all (too short or an unreadable field), mapped by the RPC layer to
// GARBAGE_ARGS rather than a call this handler could actually serve.
var ErrGarbageArgs = errors.New("portmap: malformed call arguments")

// IsGarbageArgs reports whether err (or anything it wraps) is
// ErrGarbageArgs.
func IsGarbageArgs(err error) bool {
	return errors.Is(err, ErrGarbageArgs)
}

// Program numbers (RFC 1833 / RFC 1813).
const (
	ProgramPortmap uint32 = 100000
	ProgramNFS     uint32 = 100003
	ProgramMount   uint32 = 100005
)

// Protocol numbers as carried in a pmap2 mapping (RFC 1833 Section 3).
const (
	ProtoTCP uint32 = 6
	ProtoUDP uint32 = 17
)

// Procedure numbers (RFC 1833 Section 3).
const (
	ProcNull    uint32 = 0
	ProcSet     uint32 = 1
	ProcUnset   uint32 = 2
	ProcGetPort uint32 = 3
	ProcDump    uint32 = 4
	ProcCallIt  uint32 = 5

	ProcMax = ProcCallIt
)

// Mapping is a pmap2 (prog, vers, prot, port) tuple.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}

// mappingSize is the wire length of a fixed Mapping (no XDR padding needed:
// every field is already a 4-byte word).
const mappingSize = 16

// DecodeMapping decodes a pmap2 mapping argument, used by GETPORT (SET and
// UNSET take the same shape but are not served here).
func DecodeMapping(data []byte) (*Mapping, error) {
	if len(data) < mappingSize {
		return nil, fmt.Errorf("%w: mapping too short: got %d bytes, need %d", ErrGarbageArgs, len(data), mappingSize)
	}
	r := bytes.NewReader(data)
	var m Mapping
	var err error
	if m.Prog, err = internalxdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}
	if m.Vers, err = internalxdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}
	if m.Prot, err = internalxdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}
	if m.Port, err = internalxdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}
	return &m, nil
}

// Handler serves the portmap procedures for a server that hosts NFS,
// MOUNT, and PORTMAP itself, all on the same TCP port.
type Handler struct {
	Port uint32
}

// NewHandler returns a Handler advertising port for every program this
// server hosts.
func NewHandler(port uint32) *Handler {
	return &Handler{Port: port}
}

func (h *Handler) mappings() []Mapping {
	return []Mapping{
		{Prog: ProgramPortmap, Vers: 2, Prot: ProtoTCP, Port: h.Port},
		{Prog: ProgramMount, Vers: 3, Prot: ProtoTCP, Port: h.Port},
		{Prog: ProgramNFS, Vers: 3, Prot: ProtoTCP, Port: h.Port},
	}
}

// Null implements PMAPPROC_NULL.
func (h *Handler) Null() ([]byte, error) {
	return nil, nil
}

// GetPort implements PMAPPROC_GETPORT: returns this server's port if it
// hosts (prog, vers) over the requested protocol, else 0. RFC 1833 treats
// port 0 as "not registered" rather than an error.
func (h *Handler) GetPort(args []byte) ([]byte, error) {
	req, err := DecodeMapping(args)
	if err != nil {
		return nil, err
	}
	port := uint32(0)
	for _, m := range h.mappings() {
		if m.Prog == req.Prog && m.Vers == req.Vers && m.Prot == req.Prot {
			port = m.Port
			break
		}
	}
	buf := new(bytes.Buffer)
	if err := internalxdr.WriteUint32(buf, port); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump implements PMAPPROC_DUMP: lists every (prog, vers, prot, port)
// mapping this server advertises, as a linked pmaplist, each entry
// preceded by a "has next" boolean.
func (h *Handler) Dump() ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, m := range h.mappings() {
		if err := internalxdr.WriteBool(buf, true); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteUint32(buf, m.Prog); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteUint32(buf, m.Vers); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteUint32(buf, m.Prot); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteUint32(buf, m.Port); err != nil {
			return nil, err
		}
	}
	if err := internalxdr.WriteBool(buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dispatch invokes the handler for procedure.
func (h *Handler) Dispatch(procedure uint32, args []byte) ([]byte, error) {
	switch procedure {
	case ProcNull:
		return h.Null()
	case ProcGetPort:
		return h.GetPort(args)
	case ProcDump:
		return h.Dump()
	default:
		return nil, fmt.Errorf("portmap: unsupported procedure %d", procedure)
	}
}
