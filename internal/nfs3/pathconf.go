package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// pathconf implements NFSPROC3_PATHCONF (RFC 1813 Section 3.3.20): POSIX
// pathconf(3)-style limits for a given file or directory.
func (s *Server) pathconf(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodePathConfErr(status, nil)
	}

	obj, _ := s.FS.GetAttr(cc.Context, id)

	pc, err := s.FS.PathConf(cc.Context, id)
	if err != nil {
		return encodePathConfErr(MapError(err), obj)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, pc.LinkMax); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, pc.NameMax); err != nil {
		return nil, err
	}
	boolFields := []bool{pc.NoTrunc, pc.ChownRestricted, pc.CaseInsensitive, pc.CasePreserving}
	for _, v := range boolFields {
		if err := xdr.WriteBool(buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodePathConfErr(status uint32, obj *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
