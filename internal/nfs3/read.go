package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// read implements NFSPROC3_READ (RFC 1813 Section 3.3.6). A short read
// (fewer bytes than requested) is not an error: count in the successful
// reply carries the actual number of bytes returned.
func (s *Server) read(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeReadErr(status, nil)
	}
	offset, err := xdr.DecodeUint64(r)
	if err != nil {
		return encodeReadErr(StatusInval, nil)
	}
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeReadErr(StatusInval, nil)
	}

	attr, _ := s.FS.GetAttr(cc.Context, id)

	data, eof, err := s.FS.Read(cc.Context, id, offset, count)
	if err != nil {
		return encodeReadErr(MapError(err), attr)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, uint32(len(data))); err != nil {
		return nil, err
	}
	if err := xdr.WriteBool(buf, eof); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDROpaque(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeReadErr(status uint32, attr *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
