package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// rename implements NFSPROC3_RENAME (RFC 1813 Section 3.3.14). The reply
// carries wcc_data for both the source and target directories, even when
// they are the same object.
func (s *Server) rename(cc *CallContext, args []byte) ([]byte, error) {
	r := bytes.NewReader(args)
	fromDir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeRenameReply(status, nil, nil, nil, nil)
	}
	fromName, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeRenameReply(StatusInval, nil, nil, nil, nil)
	}
	toDir, status, err := decodeHandle(r, s.Codec)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeRenameReply(status, nil, nil, nil, nil)
	}
	toName, err := decodeFilename(r)
	if err != nil {
		if IsGarbageArgs(err) {
			return nil, err
		}
		return writeRenameReply(StatusInval, nil, nil, nil, nil)
	}

	preFrom, _ := s.FS.GetAttr(cc.Context, fromDir)
	preTo, _ := s.FS.GetAttr(cc.Context, toDir)

	err = s.FS.Rename(cc.Context, fromDir, fromName, toDir, toName)
	postFrom, _ := s.FS.GetAttr(cc.Context, fromDir)
	postTo, _ := s.FS.GetAttr(cc.Context, toDir)
	if err != nil {
		return writeRenameReply(MapError(err), preFrom, postFrom, preTo, postTo)
	}
	return writeRenameReply(StatusOK, preFrom, postFrom, preTo, postTo)
}

func writeRenameReply(status uint32, preFrom, postFrom, preTo, postTo *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(preFrom), postFrom); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(preTo), postTo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
