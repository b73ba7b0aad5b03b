package nfs3

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// write implements NFSPROC3_WRITE (RFC 1813 Section 3.3.7). Non-idempotent
// under the DRC when stable is not UNSTABLE (a retransmitted WRITE must not
// apply twice), so this procedure always goes through the transaction
// tracker.
func (s *Server) write(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeWriteErr(status, nil)
	}
	offset, err := xdr.DecodeUint64(r)
	if err != nil {
		return encodeWriteErr(StatusInval, nil)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // count (redundant with data length, ignored)
		return encodeWriteErr(StatusInval, nil)
	}
	stableVal, err := xdr.DecodeUint32(r)
	if err != nil {
		return encodeWriteErr(StatusInval, nil)
	}
	data, err := xdr.DecodeOpaque(r)
	if err != nil {
		return encodeWriteErr(StatusInval, nil)
	}
	stable, err := decodeStable(stableVal)
	if err != nil {
		return encodeWriteErr(StatusInval, nil)
	}

	pre, _ := s.FS.GetAttr(cc.Context, id)

	n, committed, writeverf, err := s.FS.Write(cc.Context, id, offset, data, stable)
	if err != nil {
		return encodeWriteErr(MapError(err), pre)
	}

	post, _ := s.FS.GetAttr(cc.Context, id)

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(pre), post); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, n); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(buf, uint32(committed)); err != nil {
		return nil, err
	}
	if err := writeVerf(buf, writeverf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeStable(v uint32) (vfs.Stable, error) {
	switch vfs.Stable(v) {
	case vfs.Unstable, vfs.DataSync, vfs.FileSync:
		return vfs.Stable(v), nil
	default:
		return 0, fmt.Errorf("nfs3: invalid stable_how %d", v)
	}
}

func encodeWriteErr(status uint32, pre *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(pre), pre); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
