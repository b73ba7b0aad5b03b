package nfs3

import "bytes"

// remove implements NFSPROC3_REMOVE (RFC 1813 Section 3.3.12).
func (s *Server) remove(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	dir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeWccOnlyReply(status, nil, nil)
	}
	name, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeWccOnlyReply(StatusInval, nil, nil)
	}

	preDir, _ := s.FS.GetAttr(cc.Context, dir)

	err = s.FS.Remove(cc.Context, dir, name)
	postDir, _ := s.FS.GetAttr(cc.Context, dir)
	if err != nil {
		return writeWccOnlyReply(MapError(err), preDir, postDir)
	}
	return writeWccOnlyReply(StatusOK, preDir, postDir)
}
