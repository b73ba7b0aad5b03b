package nfs3

import "bytes"

// mkdir implements NFSPROC3_MKDIR (RFC 1813 Section 3.3.9).
func (s *Server) mkdir(cc *CallContext, args []byte) ([]byte, error) {
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

	preDir, _ := s.FS.GetAttr(cc.Context, dir)

	id, attr, err := s.FS.MkDir(cc.Context, dir, name, &attrs)
	if err != nil {
		postDir, _ := s.FS.GetAttr(cc.Context, dir)
		return writeCreateLikeReply(MapError(err), nil, nil, preDir, postDir)
	}

	postDir, _ := s.FS.GetAttr(cc.Context, dir)
	return writeCreateLikeReply(StatusOK, s.Codec.Encode(id), attr, preDir, postDir)
}
