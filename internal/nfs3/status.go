package nfs3

import (
	"context"
	"errors"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// nfsstat3 values (RFC 1813 Section 2.6).
const (
	StatusOK             uint32 = 0
	StatusPerm           uint32 = 1
	StatusNoEnt          uint32 = 2
	StatusIO             uint32 = 5
	StatusNXIO           uint32 = 6
	StatusAccess         uint32 = 13
	StatusExist          uint32 = 17
	StatusXDev           uint32 = 18
	StatusNoDev          uint32 = 19
	StatusNotDir         uint32 = 20
	StatusIsDir          uint32 = 21
	StatusInval          uint32 = 22
	StatusFBig           uint32 = 27
	StatusNoSpc          uint32 = 28
	StatusROFS           uint32 = 30
	StatusMlink          uint32 = 31
	StatusNameTooLong    uint32 = 63
	StatusNotEmpty       uint32 = 66
	StatusDQuot          uint32 = 69
	StatusStale          uint32 = 70
	StatusRemote         uint32 = 71
	StatusBadHandle      uint32 = 10001
	StatusNotSync        uint32 = 10002
	StatusBadCookie      uint32 = 10003
	StatusNotSupp        uint32 = 10004
	StatusTooSmall       uint32 = 10005
	StatusServerFault    uint32 = 10006
	StatusBadType        uint32 = 10007
	StatusJukebox        uint32 = 10008
)

// MapError translates a backend failure into an nfsstat3 code. A *vfs.Error
// carries its own code; context cancellation maps to StatusIO so a client
// retry observes a transient failure rather than a bogus success; anything
// else defaults to StatusServerFault.
func MapError(err error) uint32 {
	if err == nil {
		return StatusOK
	}
	var verr *vfs.Error
	if errors.As(err, &verr) {
		return verr.Status
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StatusIO
	}
	return StatusServerFault
}
