package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// readlink implements NFSPROC3_READLINK (RFC 1813 Section 3.3.5): returns
// the target path stored in a symbolic link.
func (s *Server) readlink(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeReadlinkErr(status, nil)
	}

	attr, _ := s.FS.GetAttr(cc.Context, id)

	target, err := s.FS.ReadLink(cc.Context, id)
	if err != nil {
		return encodeReadlinkErr(MapError(err), attr)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(buf, target); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeReadlinkErr(status uint32, attr *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
