package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// link implements NFSPROC3_LINK (RFC 1813 Section 3.3.15): creates a new
// directory entry referring to an existing file.
func (s *Server) link(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	id, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeLinkReply(status, nil, nil, nil)
	}
	newDir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeLinkReply(status, nil, nil, nil)
	}
	newName, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeLinkReply(StatusInval, nil, nil, nil)
	}

	fileAttr, _ := s.FS.GetAttr(cc.Context, id)
	preDir, _ := s.FS.GetAttr(cc.Context, newDir)

	err = s.FS.Link(cc.Context, id, newDir, newName)
	postDir, _ := s.FS.GetAttr(cc.Context, newDir)
	if err != nil {
		return writeLinkReply(MapError(err), fileAttr, preDir, postDir)
	}
	return writeLinkReply(StatusOK, fileAttr, preDir, postDir)
}

func writeLinkReply(status uint32, fileAttr *vfs.FileAttr, preDir *vfs.FileAttr, postDir *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(buf, fileAttr); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(preDir), postDir); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
