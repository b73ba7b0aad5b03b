package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// access implements NFSPROC3_ACCESS (RFC 1813 Section 3.3.4): the client
// asks which of a bitmask of operations it may perform; the backend makes
// the actual permission decision using the uid/gid/groups conveyed by the
// AUTH_SYS credential.
func (s *Server) access(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeAccessErr(status, nil)
	}
	requested, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeAccessErr(StatusInval, nil)
	}

	attr, _ := s.FS.GetAttr(cc.Context, id)

	granted, err := s.FS.Access(cc.Context, id, vfs.AccessMask(requested))
	if err != nil {
		return encodeAccessErr(MapError(err), attr)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, uint32(granted)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeAccessErr(status uint32, attr *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
