package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// readdir implements NFSPROC3_READDIR (RFC 1813 Section 3.3.16). Entries
// are encoded as a linked list, each preceded by a "has next" boolean and
// terminated by false followed by the eof flag.
func (s *Server) readdir(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	dir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeReadDirErr(status, nil)
	}
	cookie, err := xdr.DecodeUint64(r)
	if err != nil {
		return encodeReadDirErr(StatusInval, nil)
	}
	cookieverf, err := decodeVerf(r)
	if err != nil {
		return encodeReadDirErr(StatusInval, nil)
	}
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeReadDirErr(StatusInval, nil)
	}

	dirAttr, _ := s.FS.GetAttr(cc.Context, dir)

	page, err := s.FS.ReadDir(cc.Context, dir, cookie, cookieverf, count)
	if err != nil {
		return encodeReadDirErr(MapError(err), dirAttr)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, dirAttr); err != nil {
		return nil, err
	}
	if err := writeVerf(buf, page.Cookieverf); err != nil {
		return nil, err
	}
	for _, e := range page.Entries {
		if err := xdr.WriteBool(buf, true); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint64(buf, uint64(e.Fileid)); err != nil {
			return nil, err
		}
		if err := xdr.WriteXDRString(buf, e.Name); err != nil {
			return nil, err
		}
		if err := xdr.WriteUint64(buf, e.Cookie); err != nil {
			return nil, err
		}
	}
	if err := xdr.WriteBool(buf, false); err != nil {
		return nil, err
	}
	if err := xdr.WriteBool(buf, page.EOF); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeReadDirErr(status uint32, dirAttr *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, dirAttr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
