package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// commit implements NFSPROC3_COMMIT (RFC 1813 Section 3.3.21): forces any
// previously UNSTABLE writes in the given range to stable storage, letting
// a client that wrote with stable_how=UNSTABLE avoid resending the data if
// the writeverf3 it gets back matches the one from those writes.
func (s *Server) commit(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeCommitErr(status, nil)
	}
	offset, err := xdr.DecodeUint64(r)
	if err != nil {
		return encodeCommitErr(StatusInval, nil)
	}
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeCommitErr(StatusInval, nil)
	}

	pre, _ := s.FS.GetAttr(cc.Context, id)

	writeverf, err := s.FS.Commit(cc.Context, id, offset, count)
	post, _ := s.FS.GetAttr(cc.Context, id)
	if err != nil {
		return encodeCommitErr(MapError(err), pre)
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(pre), post); err != nil {
		return nil, err
	}
	if err := writeVerf(buf, writeverf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCommitErr(status uint32, pre *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(pre), pre); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
