package nfs3

import (
	"fmt"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/handle"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// Procedure numbers (RFC 1813 Section 3.3).
const (
	ProcNull        uint32 = 0
	ProcGetAttr     uint32 = 1
	ProcSetAttr     uint32 = 2
	ProcLookup      uint32 = 3
	ProcAccess      uint32 = 4
	ProcReadLink    uint32 = 5
	ProcRead        uint32 = 6
	ProcWrite       uint32 = 7
	ProcCreate      uint32 = 8
	ProcMkdir       uint32 = 9
	ProcSymlink     uint32 = 10
	ProcMknod       uint32 = 11
	ProcRemove      uint32 = 12
	ProcRmdir       uint32 = 13
	ProcRename      uint32 = 14
	ProcLink        uint32 = 15
	ProcReadDir     uint32 = 16
	ProcReadDirPlus uint32 = 17
	ProcFSStat      uint32 = 18
	ProcFSInfo      uint32 = 19
	ProcPathConf    uint32 = 20
	ProcCommit      uint32 = 21

	ProcMax = ProcCommit
)

// Idempotent reports whether procedure may bypass the duplicate request
// cache: replaying it produces no observable difference, so there is no
// correctness reason to pay for tracking it.
func Idempotent(procedure uint32) bool {
	switch procedure {
	case ProcNull, ProcGetAttr, ProcLookup, ProcAccess, ProcRead,
		ProcReadDir, ProcReadDirPlus, ProcFSInfo, ProcFSStat,
		ProcPathConf, ProcReadLink:
		return true
	default:
		return false
	}
}

// Server dispatches decoded NFSv3 calls to a backend.
type Server struct {
	FS    vfs.FileSystem
	Codec *handle.Codec
}

// NewServer builds a Server bound to fs and a handle codec using gen.
func NewServer(fs vfs.FileSystem, gen handle.Generation) *Server {
	return &Server{FS: fs, Codec: handle.NewCodec(gen)}
}

// Dispatch decodes args for procedure, invokes the matching handler, and
// returns the fully-encoded procedure reply body (status plus payload).
// The returned error is non-nil only when no procedure-level reply could
// be produced at all: either the argument bytes could not be decoded
// (IsGarbageArgs(err) is true, and the caller should reply GARBAGE_ARGS)
// or the handler failed for some other reason (the caller should reply
// SYSTEM_ERR).
func (s *Server) Dispatch(cc *CallContext, procedure uint32, args []byte) ([]byte, error) {
	switch procedure {
	case ProcNull:
		return s.null()
	case ProcGetAttr:
		return s.getattr(cc, args)
	case ProcSetAttr:
		return s.setattr(cc, args)
	case ProcLookup:
		return s.lookup(cc, args)
	case ProcAccess:
		return s.access(cc, args)
	case ProcReadLink:
		return s.readlink(cc, args)
	case ProcRead:
		return s.read(cc, args)
	case ProcWrite:
		return s.write(cc, args)
	case ProcCreate:
		return s.create(cc, args)
	case ProcMkdir:
		return s.mkdir(cc, args)
	case ProcSymlink:
		return s.symlink(cc, args)
	case ProcMknod:
		return s.mknod(cc, args)
	case ProcRemove:
		return s.remove(cc, args)
	case ProcRmdir:
		return s.rmdir(cc, args)
	case ProcRename:
		return s.rename(cc, args)
	case ProcLink:
		return s.link(cc, args)
	case ProcReadDir:
		return s.readdir(cc, args)
	case ProcReadDirPlus:
		return s.readdirplus(cc, args)
	case ProcFSStat:
		return s.fsstat(cc, args)
	case ProcFSInfo:
		return s.fsinfo(cc, args)
	case ProcPathConf:
		return s.pathconf(cc, args)
	case ProcCommit:
		return s.commit(cc, args)
	default:
		return nil, fmt.Errorf("nfs3: unknown procedure %d", procedure)
	}
}
