package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// fsstat implements NFSPROC3_FSSTAT (RFC 1813 Section 3.3.18): dynamic
// filesystem usage statistics, roughly the NFSv3 analogue of statvfs.
func (s *Server) fsstat(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeFSStatErr(status, nil)
	}

	obj, _ := s.FS.GetAttr(cc.Context, id)

	stat, err := s.FS.FSStat(cc.Context, id)
	if err != nil {
		return encodeFSStatErr(MapError(err), obj)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	fields := []uint64{stat.TotalBytes, stat.FreeBytes, stat.AvailBytes, stat.TotalFiles, stat.FreeFiles, stat.AvailFiles}
	for _, v := range fields {
		if err := xdr.WriteUint64(buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteUint32(buf, stat.InvarSec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeFSStatErr(status uint32, obj *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
