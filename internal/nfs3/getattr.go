package nfs3

import "bytes"

// getattr implements NFSPROC3_GETATTR (RFC 1813 Section 3.3.1): returns the
// attributes of the object named by a file handle. It is the most
// frequently called procedure and the canonical way a client validates a
// cached handle.
func (s *Server) getattr(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return encodeStatusOnly(status)
	}

	attr, err := s.FS.GetAttr(cc.Context, id)
	if err != nil {
		return encodeStatusOnly(MapError(err))
	}

	buf := new(bytes.Buffer)
	if err := writeStatus(buf, StatusOK); err != nil {
		return nil, err
	}
	if err := writeFattr3(buf, *attr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
