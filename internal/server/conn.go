package server

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/drc"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/logger"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/mount"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/nfs3"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/portmap"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/rpc"
)

// programName renders an RPC program number for metric labels.
func programName(program uint32) string {
	switch program {
	case rpc.ProgramNFS:
		return "nfs"
	case rpc.ProgramMount:
		return "mount"
	case rpc.ProgramPortmap:
		return "portmap"
	default:
		return strconv.FormatUint(uint64(program), 10)
	}
}

// serveConn owns one accepted connection end to end: it reassembles
// record-marked RPC messages and hands each off to its own goroutine for
// dispatch, bounded by a per-connection semaphore so a slow handler can't
// stall calls queued behind it on the same socket. A write mutex
// serializes replies so concurrent handlers never interleave frames on
// the wire; nothing orders replies relative to each other or to the
// calls that produced them; it returns once the client disconnects, a
// read/write error makes the connection unusable, or ctx is canceled.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	logger.Info("connection accepted", logger.KeyClientIP, clientAddr)
	defer logger.Info("connection closed", logger.KeyClientIP, clientAddr)

	reader := rpc.NewFragmentReader(conn, s.cfg.MaxMessageSize)

	var writeMu sync.Mutex
	var inFlight sync.WaitGroup
	defer inFlight.Wait()

	reqSem := (*semaphore.Weighted)(nil)
	if s.cfg.MaxRequestsPerConnection > 0 {
		reqSem = semaphore.NewWeighted(int64(s.cfg.MaxRequestsPerConnection))
	}

	for {
		// A connection may have several calls in flight at once, so the
		// wait here covers idle time between messages arriving on the
		// wire, not the time any one call takes to handle.
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		message, err := reader.ReadMessage()
		if err != nil {
			return
		}

		call, err := rpc.ReadCall(message)
		if err != nil {
			logger.Warn("malformed rpc call", logger.KeyClientIP, clientAddr, logger.KeyError, err.Error())
			return
		}

		if reqSem != nil {
			if err := reqSem.Acquire(ctx, 1); err != nil {
				return
			}
		}

		inFlight.Add(1)
		go func(call *rpc.CallMessage) {
			defer inFlight.Done()
			if reqSem != nil {
				defer reqSem.Release(1)
			}

			reply := s.handleCall(ctx, clientAddr, call)
			if reply == nil {
				return
			}

			writeMu.Lock()
			defer writeMu.Unlock()
			if s.cfg.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			}
			if _, err := conn.Write(reply); err != nil {
				logger.Warn("reply write failed", logger.KeyClientIP, clientAddr, logger.KeyError, err.Error())
			}
		}(call)
	}
}

// handleCall routes one decoded RPC call through RPC-level version/program
// checks, the duplicate request cache, and the matching program dispatcher,
// producing the bytes ready to write to the connection. A nil return means
// the call was a suppressed duplicate still in flight and deserves no
// reply at all.
func (s *Server) handleCall(ctx context.Context, clientAddr string, call *rpc.CallMessage) []byte {
	if call.RPCVers != rpc.RPCVersion {
		reply, _ := rpc.MakeRPCMismatchReply(call.XID)
		return reply
	}

	var uid, gid uint32
	var gids []uint32
	if call.Cred.Flavor == rpc.AuthUnix {
		if ua, err := rpc.ParseUnixAuth(call.Cred.Body); err == nil {
			uid, gid, gids = ua.UID, ua.GID, ua.GIDs
		}
	}

	lc := logger.NewLogContext(clientAddr).WithAuth(uid, gid, call.Cred.Flavor).WithProcedure(programName(call.Program))
	ctx = logger.WithContext(ctx, lc)

	key := drc.Key{XID: call.XID, ClientAddr: clientAddr}
	nonIdempotent := call.Program == rpc.ProgramNFS && !nfs3.Idempotent(call.Procedure)

	if nonIdempotent {
		switch state, cached := s.drc.Check(key); state {
		case drc.InProgress:
			return nil
		case drc.Completed:
			return cached
		}
	}

	start := time.Now()
	body, rpcErr := s.dispatch(ctx, clientAddr, uid, gid, gids, call)

	var reply []byte
	var err error
	var acceptStatus uint32
	switch e := rpcErr.(type) {
	case nil:
		acceptStatus = rpc.Success
		reply, err = rpc.MakeSuccessReply(call.XID, body)
	case progMismatchErr:
		acceptStatus = rpc.ProgMismatch
		reply, err = rpc.MakeProgMismatchReply(call.XID, e.low, e.high)
	case dispatchErr:
		switch e {
		case errProgUnavail:
			acceptStatus = rpc.ProgUnavail
			reply, err = rpc.MakeProgUnavailReply(call.XID)
		case errProcUnavail:
			acceptStatus = rpc.ProcUnavail
			reply, err = rpc.MakeProcUnavailReply(call.XID)
		case errGarbageArgs:
			acceptStatus = rpc.GarbageArgs
			reply, err = rpc.MakeGarbageArgsReply(call.XID)
		default:
			acceptStatus = rpc.SystemErr
			logger.ErrorCtx(ctx, "handler failed", logger.KeyXID, call.XID, logger.KeyError, rpcErr.Error())
			reply, err = rpc.MakeSystemErrReply(call.XID)
		}
	default:
		acceptStatus = rpc.SystemErr
		logger.ErrorCtx(ctx, "handler failed", logger.KeyXID, call.XID, logger.KeyError, rpcErr.Error())
		reply, err = rpc.MakeSystemErrReply(call.XID)
	}
	s.metrics.RecordRequest(programName(call.Program), strconv.FormatUint(uint64(call.Procedure), 10), acceptStatus, time.Since(start).Seconds())
	if err != nil {
		logger.ErrorCtx(ctx, "failed to encode reply", logger.KeyXID, call.XID, logger.KeyError, err.Error())
		return nil
	}

	if nonIdempotent {
		s.drc.RecordResponse(key, reply)
		s.metrics.SetDRCSize(s.drc.Len())
	}
	return reply
}

type dispatchErr string

func (e dispatchErr) Error() string { return string(e) }

const (
	errProgUnavail = dispatchErr("server: program unavailable")
	errProcUnavail = dispatchErr("server: procedure unavailable")
	errGarbageArgs = dispatchErr("server: garbage arguments")
)

// progMismatchErr signals a call for a known program at an unsupported
// version, carrying the version range this server does support so the
// RPC-level PROG_MISMATCH reply can report it (RFC 5531 Section 8).
type progMismatchErr struct{ low, high uint32 }

func (e progMismatchErr) Error() string { return "server: program version mismatch" }

// dispatch routes call to its program's handler and returns the raw
// procedure reply body (not yet wrapped in an RPC reply header).
func (s *Server) dispatch(ctx context.Context, clientAddr string, uid, gid uint32, gids []uint32, call *rpc.CallMessage) ([]byte, error) {
	switch call.Program {
	case rpc.ProgramNFS:
		if call.Version != rpc.NFSVersion {
			return nil, progMismatchErr{low: rpc.NFSVersion, high: rpc.NFSVersion}
		}
		if call.Procedure > nfs3.ProcMax {
			return nil, errProcUnavail
		}
		cc := &nfs3.CallContext{
			Context:    ctx,
			ClientAddr: clientAddr,
			AuthFlavor: call.Cred.Flavor,
			UID:        uid,
			GID:        gid,
			GIDs:       gids,
		}
		body, err := s.nfs.Dispatch(cc, call.Procedure, call.Args)
		if nfs3.IsGarbageArgs(err) {
			return nil, errGarbageArgs
		}
		return body, err

	case rpc.ProgramMount:
		if call.Version != rpc.MountVersion {
			return nil, progMismatchErr{low: rpc.MountVersion, high: rpc.MountVersion}
		}
		if call.Procedure > mount.ProcMax {
			return nil, errProcUnavail
		}
		cc := &mount.CallContext{
			Context:    ctx,
			ClientAddr: clientAddr,
			AuthFlavor: call.Cred.Flavor,
		}
		body, err := s.mount.Dispatch(cc, call.Procedure, call.Args)
		if mount.IsGarbageArgs(err) {
			return nil, errGarbageArgs
		}
		return body, err

	case rpc.ProgramPortmap:
		if call.Version != rpc.PortmapVersion {
			return nil, progMismatchErr{low: rpc.PortmapVersion, high: rpc.PortmapVersion}
		}
		if call.Procedure > portmap.ProcMax {
			return nil, errProcUnavail
		}
		body, err := s.portmap.Dispatch(call.Procedure, call.Args)
		if portmap.IsGarbageArgs(err) {
			return nil, errGarbageArgs
		}
		return body, err

	default:
		return nil, errProgUnavail
	}
}
