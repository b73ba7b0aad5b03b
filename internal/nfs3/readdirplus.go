package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// readdirplus implements NFSPROC3_READDIRPLUS (RFC 1813 Section 3.3.17).
// Like READDIR but each entry also carries its attributes and file handle,
// avoiding a LOOKUP+GETATTR round trip per entry for clients populating a
// directory cache.
func (s *Server) readdirplus(cc *CallContext, args []byte) ([]byte, error) {
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
	_, err = xdr.DecodeUint32(r) // dircount, informational only
	if err != nil {
		return encodeReadDirErr(StatusInval, nil)
	}
	maxcount, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeReadDirErr(StatusInval, nil)
	}

	dirAttr, _ := s.FS.GetAttr(cc.Context, dir)

	page, err := s.FS.ReadDirPlus(cc.Context, dir, cookie, cookieverf, maxcount)
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
		if err := writePostOpAttr(buf, e.Attr); err != nil {
			return nil, err
		}
		fh := s.Codec.Encode(e.Fileid)
		if e.HandleFunc != nil {
			fh = e.HandleFunc()
		}
		if err := writePostOpFh(buf, fh); err != nil {
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
