// Package rpc implements the ONC-RPC (RFC 5531) message layer shared by the
// NFS, MOUNT, and PORTMAP programs: call/reply header framing, credential
// parsing, and record-marked transport.
package rpc

// Message types (RFC 5531 Section 8, msg_type).
const (
	Call  uint32 = 0
	Reply uint32 = 1
)

// Reply status (RFC 5531 Section 8, reply_stat).
const (
	MsgAccepted uint32 = 0
	MsgDenied   uint32 = 1
)

// Accept status (RFC 5531 Section 8, accept_stat).
const (
	Success      uint32 = 0
	ProgUnavail  uint32 = 1
	ProgMismatch uint32 = 2
	ProcUnavail  uint32 = 3
	GarbageArgs  uint32 = 4
	SystemErr    uint32 = 5
)

// Reject status (RFC 5531 Section 8, reject_stat).
const (
	RPCMismatch uint32 = 0
	AuthError   uint32 = 1
)

// Auth flavors (RFC 5531 Section 8.2). RPCSECGSS and any flavor not listed
// here is accepted and ignored per the specification: clients negotiate
// security lazily, and rejecting an unrecognized flavor outright breaks
// clients that probe it speculatively.
const (
	AuthNone  uint32 = 0
	AuthUnix  uint32 = 1
	AuthShort uint32 = 2
	AuthDES   uint32 = 3
	AuthGSS   uint32 = 6
)

// RPC program numbers (RFC 1833 / RFC 1813).
const (
	ProgramPortmap uint32 = 100000
	ProgramNFS     uint32 = 100003
	ProgramMount   uint32 = 100005
)

// RPC version numbers this server speaks.
const (
	PortmapVersion = 2
	NFSVersion     = 3
	MountVersion   = 3
	RPCVersion     = 2
)
