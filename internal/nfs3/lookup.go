package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// lookup implements NFSPROC3_LOOKUP (RFC 1813 Section 3.3.3): resolves a
// name within a directory to a file handle. Every fileid this server hands
// out via lookup or readdir must later resolve through getattr.
func (s *Server) lookup(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	dir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeLookupErr(status, nil)
	}
	name, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeLookupErr(StatusInval, nil)
	}

	dirAttr, _ := s.FS.GetAttr(cc.Context, dir)

	id, err := s.FS.Lookup(cc.Context, dir, name)
	if err != nil {
		return encodeLookupErr(MapError(err), dirAttr)
	}

	attr, err := s.FS.GetAttr(cc.Context, id)
	if err != nil {
		return encodeLookupErr(MapError(err), dirAttr)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := encodeHandle(buf, s.Codec.Encode(id)); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, attr); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, dirAttr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeLookupErr(status uint32, dirAttr *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, dirAttr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
