package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// setattr implements NFSPROC3_SETATTR (RFC 1813 Section 3.3.2). The client
// may guard the operation on the object's ctime to avoid a lost update
// race against a concurrent modification.
func (s *Server) setattr(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeSetAttrErr(status, nil)
	}

	attrs, err := decodeSattr3(r)
	if err != nil {
		return encodeSetAttrErr(StatusInval, nil)
	}

	hasGuard, err := xdr.DecodeBool(r)
	if err != nil {
		return encodeSetAttrErr(StatusInval, nil)
	}
	var guard *vfs.Guard
	if hasGuard {
		ctime, err := decodeTime(r)
		if err != nil {
			return encodeSetAttrErr(StatusInval, nil)
		}
		guard = &vfs.Guard{Check: true, Ctime: ctime}
	}

	pre, _ := s.FS.GetAttr(cc.Context, id)

	newAttr, err := s.FS.SetAttr(cc.Context, id, &attrs, guard)
	if err != nil {
		return encodeSetAttrErr(MapError(err), pre)
	}

	return writeWccOnlyReply(StatusOK, pre, newAttr)
}

func encodeSetAttrErr(status uint32, pre *vfs.FileAttr) ([]byte, error) {
	return writeWccOnlyReply(status, pre, pre)
}
