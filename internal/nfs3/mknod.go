package nfs3

import (
	"bytes"
	"errors"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// mknod implements NFSPROC3_MKNOD (RFC 1813 Section 3.3.11): creates a
// special file. Only block and character devices carry rdev; other types
// (socket, FIFO) only carry attributes.
func (s *Server) mknod(cc *CallContext, args []byte) ([]byte, error) {
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
	typeVal, err := xdr.DecodeUint32(r)
	if err != nil {
		return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
	}

	ftype, err := decodeFType(typeVal)
	if err != nil {
		return writeCreateLikeReply(StatusBadType, nil, nil, nil, nil)
	}

	var attrs vfs.SetAttrs
	var rdev vfs.Rdev
	switch ftype {
	case vfs.TypeBlock, vfs.TypeChar:
		attrs, err = decodeSattr3(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
		rdev.Major, err = xdr.DecodeUint32(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
		rdev.Minor, err = xdr.DecodeUint32(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
	case vfs.TypeSocket, vfs.TypeFIFO:
		attrs, err = decodeSattr3(r)
		if err != nil {
			return writeCreateLikeReply(StatusInval, nil, nil, nil, nil)
		}
	default:
		return writeCreateLikeReply(StatusBadType, nil, nil, nil, nil)
	}

	preDir, _ := s.FS.GetAttr(cc.Context, dir)

	id, attr, err := s.FS.MkNod(cc.Context, dir, name, ftype, &attrs, rdev)
	if err != nil {
		postDir, _ := s.FS.GetAttr(cc.Context, dir)
		return writeCreateLikeReply(MapError(err), nil, nil, preDir, postDir)
	}

	postDir, _ := s.FS.GetAttr(cc.Context, dir)
	return writeCreateLikeReply(StatusOK, s.Codec.Encode(id), attr, preDir, postDir)
}

func decodeFType(v uint32) (vfs.FileType, error) {
	switch v {
	case typeReg:
		return vfs.TypeRegular, nil
	case typeDir:
		return vfs.TypeDir, nil
	case typeBlk:
		return vfs.TypeBlock, nil
	case typeChr:
		return vfs.TypeChar, nil
	case typeLnk:
		return vfs.TypeLink, nil
	case typeSock:
		return vfs.TypeSocket, nil
	case typeFifo:
		return vfs.TypeFIFO, nil
	default:
		return 0, errInvalidFType
	}
}

var errInvalidFType = errors.New("nfs3: invalid ftype3")
