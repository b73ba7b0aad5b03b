package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// fsinfo implements NFSPROC3_FSINFO (RFC 1813 Section 3.3.19): static
// filesystem capabilities and preferred I/O sizes, fetched once by a
// client right after MOUNT to size its read/write buffers.
func (s *Server) fsinfo(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeFSInfoErr(status, nil)
	}

	obj, _ := s.FS.GetAttr(cc.Context, id)

	info, err := s.FS.FSInfo(cc.Context, id)
	if err != nil {
		return encodeFSInfoErr(MapError(err), obj)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	u32Fields := []uint32{info.RtMax, info.RtPref, info.RtMult, info.WtMax, info.WtPref, info.WtMult, info.DtPref}
	for _, v := range u32Fields {
		if err := xdr.WriteUint32(buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint64(buf, info.MaxFileSize); err != nil {
		return nil, err
	}
	if err := writeTime(buf, info.TimeDelta); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, info.Properties); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeFSInfoErr(status uint32, obj *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
