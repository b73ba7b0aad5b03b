package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// create implements NFSPROC3_CREATE (RFC 1813 Section 3.3.8). EXCLUSIVE mode
// carries a client-chosen 8-byte verifier instead of attributes: a retry
// with the same verifier must be treated as success even if the file
// already exists, which is what makes CREATE safe to combine with the DRC's
// replay-on-retransmit behavior.
func (s *Server) create(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	dir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeCreateLikeReply(status, nil, nil, nil, nil)
	}
	name, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
	}
	modeVal, err := xdr.DecodeUint32(r)
	if err != nil {
		return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
	}

	var attrs vfs.SetAttrs
	var createverf uint64
	mode := vfs.CreateMode(modeVal)
	switch mode {
	case vfs.Unchecked, vfs.Guarded:
		attrs, err = decodeSattr3(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
	case vfs.Exclusive:
		createverf, err = decodeVerf(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
	default:
		return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
	}

	preDir, _ := s.FS.GetAttr(cc.Context, dir)

	id, attr, err := s.FS.Create(cc.Context, dir, name, &attrs, mode, createverf)
	if err != nil {
		postDir, _ := s.FS.GetAttr(cc.Context, dir)
		return writeCreateLikeReply(MapError(err), nil, nil, preDir, postDir)
	}

	postDir, _ := s.FS.GetAttr(cc.Context, dir)
	return writeCreateLikeReply(StatusOK, s.Codec.Encode(id), attr, preDir, postDir)
}
