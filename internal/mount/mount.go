// Package mount implements the MOUNT v3 side-band protocol (RFC 1813
// Appendix I) that NFSv3 clients use to exchange an export path for the
// root file handle they then drive NFS procedures against.
//
// The export list is intentionally static: a single export, "/", mapped to
// the backend's root directory. RFC 1813 leaves export policy entirely up
// to the server; this one does not need more than one.
package mount

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/handle"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	internalxdr "github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// ErrGarbageArgs marks a MOUNT argument that could not be XDR-decoded at
// all, as distinct from a well-formed dirpath this server simply doesn't
// export. The RPC layer replies GARBAGE_ARGS for the former and a normal
// mountstat3 error for the latter.
var ErrGarbageArgs = errors.New("mount: malformed call arguments")

// IsGarbageArgs reports whether err (or anything it wraps) is
// ErrGarbageArgs.
func IsGarbageArgs(err error) bool {
	return errors.Is(err, ErrGarbageArgs)
}

// ExportPath is the one directory this server exports. NFSv3 servers are
// free to expose multiple exports; this one only ever needs its backend's
// root.
const ExportPath = "/"

// CallContext carries the per-call information a mount handler needs:
// cancellation, client identity, and the auth flavor the RPC credential
// arrived with.
type CallContext struct {
	Context    context.Context
	ClientAddr string
	AuthFlavor uint32
}

func (c *CallContext) cancelled() bool {
	select {
	case <-c.Context.Done():
		return true
	default:
		return false
	}
}

// MntRequest is the decoded argument of the MNT procedure: the path the
// client wants a handle for.
type MntRequest struct {
	DirPath string
}

// MntReply is the encoded shape of fhstatus3: a status, and on success a
// file handle plus the auth flavors the server will accept for it.
type MntReply struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []int32
}

// mountRecord tracks one active mount for the DUMP procedure.
type mountRecord struct {
	clientHost string
	dirPath    string
}

// Handler serves the MOUNT v3 procedures against a single VFS backend,
// tracking active mounts in memory for DUMP/UMNT/UMNTALL.
type Handler struct {
	FS    vfs.FileSystem
	Codec *handle.Codec

	mu      sync.Mutex
	mounts  map[string]mountRecord // keyed by clientHost+"\x00"+dirPath
}

// NewHandler returns a Handler serving fs through codec.
func NewHandler(fs vfs.FileSystem, codec *handle.Codec) *Handler {
	return &Handler{FS: fs, Codec: codec, mounts: make(map[string]mountRecord)}
}

// DecodeMntRequest decodes a MNT argument from XDR-encoded bytes using
// reflection-based unmarshaling: the argument is a single string field, so
// there is no variable-shape decoding worth hand-rolling.
func DecodeMntRequest(data []byte) (*MntRequest, error) {
	req := &MntRequest{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}
	return req, nil
}

// Encode serializes an MntReply as fhstatus3: status, then (only if
// status is OK) the opaque file handle and the auth flavor list.
func (r *MntReply) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := internalxdr.WriteUint32(buf, r.Status); err != nil {
		return nil, err
	}
	if r.Status != StatusOK {
		return buf.Bytes(), nil
	}
	if err := internalxdr.WriteXDROpaque(buf, r.FileHandle); err != nil {
		return nil, err
	}
	if err := internalxdr.WriteUint32(buf, uint32(len(r.AuthFlavors))); err != nil {
		return nil, err
	}
	for _, flavor := range r.AuthFlavors {
		if err := internalxdr.WriteInt32(buf, flavor); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Null implements MOUNTPROC3_NULL: a no-op liveness probe.
func (h *Handler) Null() ([]byte, error) {
	return nil, nil
}

// Mnt implements MOUNTPROC3_MNT: resolves a dirpath to a root file handle,
// rejecting anything but the single configured export.
func (h *Handler) Mnt(cc *CallContext, args []byte) ([]byte, error) {
	if cc.cancelled() {
		reply := &MntReply{Status: StatusServerFault}
		return reply.Encode()
	}

	req, err := DecodeMntRequest(args)
	if err != nil {
		return nil, err
	}

	if req.DirPath != ExportPath {
		reply := &MntReply{Status: StatusNoEnt}
		return reply.Encode()
	}

	root := h.FS.RootDir(cc.Context)
	fh := h.Codec.Encode(root)

	h.recordMount(cc.ClientAddr, req.DirPath)

	reply := &MntReply{
		Status:      StatusOK,
		FileHandle:  fh,
		AuthFlavors: []int32{0, 1}, // AUTH_NONE, AUTH_SYS
	}
	return reply.Encode()
}

func (h *Handler) recordMount(clientAddr, dirPath string) {
	host := clientHost(clientAddr)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounts[host+"\x00"+dirPath] = mountRecord{clientHost: host, dirPath: dirPath}
}

// Dump implements MOUNTPROC3_DUMP: returns the list of active mounts as a
// linked mountlist3, each entry preceded by a "has next" boolean.
func (h *Handler) Dump(cc *CallContext, args []byte) ([]byte, error) {
	h.mu.Lock()
	records := make([]mountRecord, 0, len(h.mounts))
	for _, rec := range h.mounts {
		records = append(records, rec)
	}
	h.mu.Unlock()

	buf := new(bytes.Buffer)
	for _, rec := range records {
		if err := internalxdr.WriteBool(buf, true); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteXDRString(buf, rec.clientHost); err != nil {
			return nil, err
		}
		if err := internalxdr.WriteXDRString(buf, rec.dirPath); err != nil {
			return nil, err
		}
	}
	if err := internalxdr.WriteBool(buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Umnt implements MOUNTPROC3_UMNT: forgets a client's mount of dirpath. It
// has no reply body beyond the RPC success header.
func (h *Handler) Umnt(cc *CallContext, args []byte) ([]byte, error) {
	req, err := DecodeMntRequest(args)
	if err != nil {
		return nil, err
	}
	host := clientHost(cc.ClientAddr)
	h.mu.Lock()
	delete(h.mounts, host+"\x00"+req.DirPath)
	h.mu.Unlock()
	return nil, nil
}

// UmntAll implements MOUNTPROC3_UMNTALL: forgets every mount recorded for
// the calling client.
func (h *Handler) UmntAll(cc *CallContext, args []byte) ([]byte, error) {
	host := clientHost(cc.ClientAddr)
	h.mu.Lock()
	for key, rec := range h.mounts {
		if rec.clientHost == host {
			delete(h.mounts, key)
		}
	}
	h.mu.Unlock()
	return nil, nil
}

// Export implements MOUNTPROC3_EXPORT: lists the server's exports and,
// for each, the client groups permitted to mount it. This server
// advertises a single unrestricted export.
func (h *Handler) Export(cc *CallContext, args []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	// One export entry: has-next=true, dirpath, empty group list, then
	// has-next=false to terminate the exports list.
	if err := internalxdr.WriteBool(buf, true); err != nil {
		return nil, err
	}
	if err := internalxdr.WriteXDRString(buf, ExportPath); err != nil {
		return nil, err
	}
	if err := internalxdr.WriteBool(buf, false); err != nil { // empty groups list
		return nil, err
	}
	if err := internalxdr.WriteBool(buf, false); err != nil { // no further exports
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dispatch invokes the handler for procedure, decoding args itself since
// each MOUNT procedure has a different (or empty) argument shape.
func (h *Handler) Dispatch(cc *CallContext, procedure uint32, args []byte) ([]byte, error) {
	switch procedure {
	case ProcNull:
		return h.Null()
	case ProcMnt:
		return h.Mnt(cc, args)
	case ProcDump:
		return h.Dump(cc, args)
	case ProcUmnt:
		return h.Umnt(cc, args)
	case ProcUmntAll:
		return h.UmntAll(cc, args)
	case ProcExport:
		return h.Export(cc, args)
	default:
		return nil, fmt.Errorf("mount: unknown procedure %d", procedure)
	}
}

func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
