package nfs3

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// symlink implements NFSPROC3_SYMLINK (RFC 1813 Section 3.3.10).
func (s *Server) symlink(cc *CallContext, args []byte) ([]byte, error) {
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
	attrs, err := decodeSattr3(r)
	if err != nil {
		return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
	}
	target, err := xdr.DecodeString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGarbageArgs, err)
	}

	preDir, _ := s.FS.GetAttr(cc.Context, dir)

	id, attr, err := s.FS.Symlink(cc.Context, dir, name, target, &attrs)
	if err != nil {
		postDir, _ := s.FS.GetAttr(cc.Context, dir)
		return writeCreateLikeReply(MapError(err), nil, nil, preDir, postDir)
	}

	postDir, _ := s.FS.GetAttr(cc.Context, dir)
	return writeCreateLikeReply(StatusOK, s.Codec.Encode(id), attr, preDir, postDir)
}
