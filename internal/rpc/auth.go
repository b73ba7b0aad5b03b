package rpc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/xdr"
)

// Credential is a decoded RPC credential/verifier pair as carried on every
// call (RFC 5531 Section 9, opaque_auth). Body is left undecoded until a
// handler needs it: AUTH_NONE has an empty body, AUTH_SYS's body is parsed
// by ParseUnixAuth, and every other flavor is passed through unexamined.
type Credential struct {
	Flavor uint32
	Body   []byte
}

// maxMachineName and maxGIDs bound AUTH_SYS parsing against a hostile or
// corrupt credential: a machine name longer than 255 bytes or more than 16
// supplementary gids is rejected.
const (
	maxMachineName = 255
	maxGIDs        = 16
)

// UnixAuth is the decoded body of an AUTH_SYS (AUTH_UNIX) credential (RFC
// 1057 Section 9.2).
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// String renders the credential for logging.
func (a *UnixAuth) String() string {
	return fmt.Sprintf("UnixAuth{machine=%s uid=%d gid=%d gids=%v}", a.MachineName, a.UID, a.GID, a.GIDs)
}

// ParseUnixAuth decodes an AUTH_SYS credential body.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("auth_sys: empty credential body")
	}

	r := bytes.NewReader(body)

	stamp, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("auth_sys: read stamp: %w", err)
	}

	nameLen, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("auth_sys: read machine name length: %w", err)
	}
	if nameLen > maxMachineName {
		return nil, fmt.Errorf("auth_sys: machine name too long: %d bytes", nameLen)
	}
	nameBuf := make([]byte, nameLen)
	if nameLen > 0 {
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("auth_sys: read machine name: %w", err)
		}
	}
	if pad := (4 - (nameLen % 4)) % 4; pad > 0 {
		skip := make([]byte, pad)
		if _, err := io.ReadFull(r, skip); err != nil {
			return nil, fmt.Errorf("auth_sys: read machine name padding: %w", err)
		}
	}

	uid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("auth_sys: read uid: %w", err)
	}
	gid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("auth_sys: read gid: %w", err)
	}

	ngids, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("auth_sys: read gids count: %w", err)
	}
	if ngids > maxGIDs {
		return nil, fmt.Errorf("auth_sys: too many gids: %d", ngids)
	}
	gids := make([]uint32, ngids)
	for i := range gids {
		gids[i], err = xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("auth_sys: read gid[%d]: %w", i, err)
		}
	}

	return &UnixAuth{
		Stamp:       stamp,
		MachineName: string(nameBuf),
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}, nil
}
