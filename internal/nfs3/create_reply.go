package nfs3

import (
	"bytes"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// writeCreateLikeReply encodes the shared reply shape of CREATE, MKDIR,
// SYMLINK, and MKNOD (RFC 1813 Sections 3.3.8-3.3.11): status, an optional
// file handle and attributes for the new object, and wcc_data for the
// parent directory.
func writeCreateLikeReply(status uint32, fh []byte, obj *vfs.FileAttr, preDir *vfs.FileAttr, postDir *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if status == StatusOK {
		if err := writePostOpFh(buf, fh); err != nil {
			return nil, err
		}
		if err := writePostOpAttr(buf, obj); err != nil {
			return nil, err
		}
	}
	if err := writeWccData(buf, preOpFromAttr(preDir), postDir); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeWccOnlyReply encodes the status+wcc_data reply shape shared by
// REMOVE, RMDIR, and similar operations that report only the parent
// directory's weak cache consistency data.
func writeWccOnlyReply(status uint32, pre *vfs.FileAttr, post *vfs.FileAttr) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeStatus(buf, status); err != nil {
		return nil, err
	}
	if err := writeWccData(buf, preOpFromAttr(pre), post); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePostOpFh encodes a post_op_fh3: present flag then an opaque handle.
func writePostOpFh(buf *bytes.Buffer, fh []byte) error {
	if fh == nil {
		return xdr.WriteBool(buf, false)
	}
	if err := xdr.WriteBool(buf, true); err != nil {
		return err
	}
	return encodeHandle(buf, fh)
}
