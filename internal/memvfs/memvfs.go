// Package memvfs is an in-memory vfs.FileSystem: every object lives in a
// map keyed by fileid, directories hold a name-to-fileid index, and regular
// files hold their bytes directly. It exists so the server is runnable and
// testable without a real storage backend; it is not meant to survive a
// restart or to scale past what fits in one process's heap.
package memvfs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

// nfsstat3 codes this backend needs to report precisely. Mirrored here
// rather than imported from the protocol layer: vfs must not depend on
// nfs3, which already depends on vfs.
const (
	statNoEnt     = 2
	statExist     = 17
	statNotDir    = 20
	statIsDir     = 21
	statInval     = 22
	statNotEmpty  = 66
	statBadCookie = 10003
)

func statusErr(status uint32, msg string) error {
	return &vfs.Error{Status: status, Err: errString(msg)}
}

type errString string

func (e errString) Error() string { return string(e) }

const rootID vfs.FileID = 1

type node struct {
	mu sync.Mutex

	id     vfs.FileID
	attr   vfs.FileAttr
	parent vfs.FileID

	// dir-only
	children map[string]vfs.FileID
	names    []string // insertion order, stable basis for READDIR cookies
	dirGen   uint64   // bumped on every structural change; doubles as cookieverf

	// regular-file-only
	data       []byte
	createverf uint64
	hasVerf    bool

	// symlink-only
	linkTarget string
}

// FS is an in-memory backend. The zero value is not usable; use New.
type FS struct {
	mu         sync.RWMutex
	nodes      map[vfs.FileID]*node
	nextID     atomic.Uint64
	capability vfs.Capability
	fsid       uint64
}

// New returns an FS with an empty root directory.
func New(capability vfs.Capability) *FS {
	fs := &FS{
		nodes:      make(map[vfs.FileID]*node),
		capability: capability,
		fsid:       1,
	}
	fs.nextID.Store(uint64(rootID))
	root := &node{
		id:       rootID,
		parent:   rootID,
		children: make(map[string]vfs.FileID),
	}
	root.attr = vfs.FileAttr{
		Type:   vfs.TypeDir,
		Mode:   0o755,
		Nlink:  2,
		Fsid:   fs.fsid,
		Fileid: rootID,
	}
	fs.nodes[rootID] = root
	return fs
}

func (fs *FS) allocID() vfs.FileID {
	return vfs.FileID(fs.nextID.Add(1))
}

func (fs *FS) Capabilities() vfs.Capability { return fs.capability }

func (fs *FS) RootDir(ctx context.Context) vfs.FileID { return rootID }

func (fs *FS) get(id vfs.FileID) (*node, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.nodes[id]
	if !ok {
		return nil, statusErr(statNoEnt, "no such file or directory")
	}
	return n, nil
}

func (fs *FS) getDir(id vfs.FileID) (*node, error) {
	n, err := fs.get(id)
	if err != nil {
		return nil, err
	}
	if n.attr.Type != vfs.TypeDir {
		return nil, statusErr(statNotDir, "not a directory")
	}
	return n, nil
}

func copyAttr(n *node) *vfs.FileAttr {
	a := n.attr
	return &a
}

func (fs *FS) Lookup(ctx context.Context, dir vfs.FileID, name string) (vfs.FileID, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch name {
	case ".":
		return dir, nil
	case "..":
		return d.parent, nil
	}
	id, ok := d.children[name]
	if !ok {
		return 0, statusErr(statNoEnt, "no such file or directory")
	}
	return id, nil
}

func (fs *FS) GetAttr(ctx context.Context, id vfs.FileID) (*vfs.FileAttr, error) {
	n, err := fs.get(id)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyAttr(n), nil
}

func (fs *FS) SetAttr(ctx context.Context, id vfs.FileID, attrs *vfs.SetAttrs, guard *vfs.Guard) (*vfs.FileAttr, error) {
	n, err := fs.get(id)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if guard != nil && guard.Check && guard.Ctime != n.attr.Ctime {
		return nil, statusErr(statInval, "ctime guard mismatch")
	}

	if attrs.Mode.Set {
		n.attr.Mode = attrs.Mode.Value
	}
	if attrs.UID.Set {
		n.attr.UID = attrs.UID.Value
	}
	if attrs.GID.Set {
		n.attr.GID = attrs.GID.Value
	}
	if attrs.Size.Set {
		n.attr.Size = attrs.Size.Value
		if n.attr.Type == vfs.TypeRegular {
			if int(attrs.Size.Value) <= len(n.data) {
				n.data = n.data[:attrs.Size.Value]
			} else {
				grown := make([]byte, attrs.Size.Value)
				copy(grown, n.data)
				n.data = grown
			}
		}
	}
	applyTimeSet(&n.attr.Atime, attrs.Atime)
	applyTimeSet(&n.attr.Mtime, attrs.Mtime)
	return copyAttr(n), nil
}

func applyTimeSet(dst *vfs.Time, ts vfs.TimeSet) {
	switch ts.Mode {
	case vfs.TimeSetToClient:
		*dst = ts.Value
	case vfs.TimeSetToServer:
		// No wall clock dependency here; leave the existing stamp. A
		// real backend would stamp time.Now().
	}
}

func (fs *FS) Read(ctx context.Context, id vfs.FileID, offset uint64, count uint32) ([]byte, bool, error) {
	n, err := fs.get(id)
	if err != nil {
		return nil, false, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attr.Type != vfs.TypeRegular {
		return nil, false, statusErr(statInval, "not a regular file")
	}
	if offset >= uint64(len(n.data)) {
		return nil, true, nil
	}
	end := offset + uint64(count)
	if end > uint64(len(n.data)) {
		end = uint64(len(n.data))
	}
	out := make([]byte, end-offset)
	copy(out, n.data[offset:end])
	return out, end == uint64(len(n.data)), nil
}

func (fs *FS) Write(ctx context.Context, id vfs.FileID, offset uint64, data []byte, stable vfs.Stable) (uint32, vfs.Stable, uint64, error) {
	n, err := fs.get(id)
	if err != nil {
		return 0, 0, 0, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attr.Type != vfs.TypeRegular {
		return 0, 0, 0, statusErr(statInval, "not a regular file")
	}
	end := offset + uint64(len(data))
	if end > uint64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:end], data)
	n.attr.Size = uint64(len(n.data))
	return uint32(len(data)), vfs.FileSync, fs.fsid, nil
}

func (fs *FS) newChild(dirNode *node, name string, ftype vfs.FileType, attrs *vfs.SetAttrs) (*node, error) {
	if _, exists := dirNode.children[name]; exists {
		return nil, statusErr(statExist, "file exists")
	}
	id := fs.allocID()
	child := &node{
		id:     id,
		parent: dirNode.id,
		attr: vfs.FileAttr{
			Type:   ftype,
			Nlink:  1,
			Fsid:   fs.fsid,
			Fileid: id,
		},
	}
	if attrs != nil {
		if attrs.Mode.Set {
			child.attr.Mode = attrs.Mode.Value
		}
		if attrs.UID.Set {
			child.attr.UID = attrs.UID.Value
		}
		if attrs.GID.Set {
			child.attr.GID = attrs.GID.Value
		}
	}
	if ftype == vfs.TypeDir {
		child.children = make(map[string]vfs.FileID)
		child.attr.Nlink = 2
	}

	fs.mu.Lock()
	fs.nodes[id] = child
	fs.mu.Unlock()

	dirNode.children[name] = id
	dirNode.names = append(dirNode.names, name)
	dirNode.dirGen++
	return child, nil
}

func (fs *FS) Create(ctx context.Context, dir vfs.FileID, name string, attr *vfs.SetAttrs, mode vfs.CreateMode, createverf uint64) (vfs.FileID, *vfs.FileAttr, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return 0, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if existingID, exists := d.children[name]; exists {
		switch mode {
		case vfs.Unchecked:
			existing, err := fs.get(existingID)
			if err != nil {
				return 0, nil, err
			}
			return existingID, copyAttr(existing), nil
		case vfs.Exclusive:
			existing, err := fs.get(existingID)
			if err == nil {
				existing.mu.Lock()
				matches := existing.hasVerf && existing.createverf == createverf
				existing.mu.Unlock()
				if matches {
					return existingID, copyAttr(existing), nil
				}
			}
			return 0, nil, statusErr(statExist, "file exists")
		default: // Guarded
			return 0, nil, statusErr(statExist, "file exists")
		}
	}

	child, err := fs.newChild(d, name, vfs.TypeRegular, attr)
	if err != nil {
		return 0, nil, err
	}
	if mode == vfs.Exclusive {
		child.createverf = createverf
		child.hasVerf = true
	}
	return child.id, copyAttr(child), nil
}

func (fs *FS) MkDir(ctx context.Context, dir vfs.FileID, name string, attr *vfs.SetAttrs) (vfs.FileID, *vfs.FileAttr, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return 0, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	child, err := fs.newChild(d, name, vfs.TypeDir, attr)
	if err != nil {
		return 0, nil, err
	}
	return child.id, copyAttr(child), nil
}

func (fs *FS) Symlink(ctx context.Context, dir vfs.FileID, name string, target string, attr *vfs.SetAttrs) (vfs.FileID, *vfs.FileAttr, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return 0, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	child, err := fs.newChild(d, name, vfs.TypeLink, attr)
	if err != nil {
		return 0, nil, err
	}
	child.linkTarget = target
	child.attr.Size = uint64(len(target))
	return child.id, copyAttr(child), nil
}

func (fs *FS) MkNod(ctx context.Context, dir vfs.FileID, name string, ftype vfs.FileType, attr *vfs.SetAttrs, rdev vfs.Rdev) (vfs.FileID, *vfs.FileAttr, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return 0, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	child, err := fs.newChild(d, name, ftype, attr)
	if err != nil {
		return 0, nil, err
	}
	if ftype == vfs.TypeBlock || ftype == vfs.TypeChar {
		child.attr.Rdev = rdev
	}
	return child.id, copyAttr(child), nil
}

func (fs *FS) removeEntry(dir vfs.FileID, name string, wantDir bool) error {
	d, err := fs.getDir(dir)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.children[name]
	if !ok {
		return statusErr(statNoEnt, "no such file or directory")
	}
	target, err := fs.get(id)
	if err != nil {
		return err
	}
	target.mu.Lock()
	isDir := target.attr.Type == vfs.TypeDir
	if wantDir && !isDir {
		target.mu.Unlock()
		return statusErr(statNotDir, "not a directory")
	}
	if !wantDir && isDir {
		target.mu.Unlock()
		return statusErr(statIsDir, "is a directory")
	}
	if isDir && len(target.children) > 0 {
		target.mu.Unlock()
		return statusErr(statNotEmpty, "directory not empty")
	}
	target.mu.Unlock()

	delete(d.children, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
	d.dirGen++

	fs.mu.Lock()
	delete(fs.nodes, id)
	fs.mu.Unlock()
	return nil
}

func (fs *FS) Remove(ctx context.Context, dir vfs.FileID, name string) error {
	return fs.removeEntry(dir, name, false)
}

func (fs *FS) RmDir(ctx context.Context, dir vfs.FileID, name string) error {
	return fs.removeEntry(dir, name, true)
}

func (fs *FS) Rename(ctx context.Context, oldDir vfs.FileID, oldName string, newDir vfs.FileID, newName string) error {
	from, err := fs.getDir(oldDir)
	if err != nil {
		return err
	}
	to, err := fs.getDir(newDir)
	if err != nil {
		return err
	}

	// Lock in a stable order to avoid deadlocking against a concurrent
	// rename of the same two directories the other way around.
	first, second := from, to
	if to.id < from.id {
		first, second = to, from
	}
	first.mu.Lock()
	if second != first {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	defer first.mu.Unlock()

	id, ok := from.children[oldName]
	if !ok {
		return statusErr(statNoEnt, "no such file or directory")
	}
	if existingID, exists := to.children[newName]; exists && existingID != id {
		delete(to.children, newName)
		for i, n := range to.names {
			if n == newName {
				to.names = append(to.names[:i], to.names[i+1:]...)
				break
			}
		}
		fs.mu.Lock()
		delete(fs.nodes, existingID)
		fs.mu.Unlock()
	}

	delete(from.children, oldName)
	for i, n := range from.names {
		if n == oldName {
			from.names = append(from.names[:i], from.names[i+1:]...)
			break
		}
	}
	from.dirGen++

	to.children[newName] = id
	to.names = append(to.names, newName)
	to.dirGen++

	if n, err := fs.get(id); err == nil {
		n.mu.Lock()
		n.parent = to.id
		n.mu.Unlock()
	}
	return nil
}

func (fs *FS) Link(ctx context.Context, id vfs.FileID, newDir vfs.FileID, newName string) error {
	target, err := fs.get(id)
	if err != nil {
		return err
	}
	d, err := fs.getDir(newDir)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.children[newName]; exists {
		return statusErr(statExist, "file exists")
	}
	d.children[newName] = id
	d.names = append(d.names, newName)
	d.dirGen++

	target.mu.Lock()
	target.attr.Nlink++
	target.mu.Unlock()
	return nil
}

func (fs *FS) ReadLink(ctx context.Context, id vfs.FileID) (string, error) {
	n, err := fs.get(id)
	if err != nil {
		return "", err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attr.Type != vfs.TypeLink {
		return "", statusErr(statInval, "not a symbolic link")
	}
	return n.linkTarget, nil
}

// readDirSlice returns the stable-ordered (name, fileid) pairs starting at
// cookie, validating cookieverf against the directory's current
// generation. cookie 0 always starts from the beginning regardless of the
// verifier, matching RFC 1813's "cookie 0 means begin at the start" rule.
func (d *node) readDirSlice(cookie uint64, cookieverf uint64) ([]string, error) {
	if cookie != 0 && cookieverf != d.dirGen {
		return nil, statusErr(statBadCookie, "stale cookie verifier")
	}
	if cookie > uint64(len(d.names)) {
		return nil, statusErr(statBadCookie, "cookie out of range")
	}
	return d.names[cookie:], nil
}

func (fs *FS) ReadDir(ctx context.Context, dir vfs.FileID, cookie uint64, cookieverf uint64, maxBytes uint32) (*vfs.ReadDirPage, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	names, err := d.readDirSlice(cookie, cookieverf)
	if err != nil {
		return nil, err
	}

	const approxEntrySize = 64
	maxEntries := int(maxBytes / approxEntrySize)
	if maxEntries < 1 {
		maxEntries = 1
	}

	page := &vfs.ReadDirPage{Cookieverf: d.dirGen}
	for i, name := range names {
		if i >= maxEntries {
			return page, nil
		}
		childID := d.children[name]
		page.Entries = append(page.Entries, vfs.DirEntry{
			Fileid: childID,
			Name:   name,
			Cookie: cookie + uint64(i) + 1,
		})
	}
	page.EOF = true
	return page, nil
}

func (fs *FS) ReadDirPlus(ctx context.Context, dir vfs.FileID, cookie uint64, cookieverf uint64, maxBytes uint32) (*vfs.ReadDirPlusPage, error) {
	d, err := fs.getDir(dir)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	names, err := d.readDirSlice(cookie, cookieverf)
	if err != nil {
		return nil, err
	}

	const approxEntrySize = 128
	maxEntries := int(maxBytes / approxEntrySize)
	if maxEntries < 1 {
		maxEntries = 1
	}

	page := &vfs.ReadDirPlusPage{Cookieverf: d.dirGen}
	for i, name := range names {
		if i >= maxEntries {
			return page, nil
		}
		childID := d.children[name]
		child, err := fs.get(childID)
		if err != nil {
			continue
		}
		child.mu.Lock()
		attr := copyAttr(child)
		child.mu.Unlock()
		page.Entries = append(page.Entries, vfs.DirEntryPlus{
			Fileid: childID,
			Name:   name,
			Cookie: cookie + uint64(i) + 1,
			Attr:   attr,
		})
	}
	page.EOF = true
	return page, nil
}

func (fs *FS) FSStat(ctx context.Context, id vfs.FileID) (*vfs.FSStat, error) {
	if _, err := fs.get(id); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	count := uint64(len(fs.nodes))
	fs.mu.RUnlock()
	const totalBytes = 1 << 40
	const totalFiles = 1 << 20
	return &vfs.FSStat{
		TotalBytes: totalBytes,
		FreeBytes:  totalBytes,
		AvailBytes: totalBytes,
		TotalFiles: totalFiles,
		FreeFiles:  totalFiles - count,
		AvailFiles: totalFiles - count,
	}, nil
}

func (fs *FS) FSInfo(ctx context.Context, id vfs.FileID) (*vfs.FSInfo, error) {
	if _, err := fs.get(id); err != nil {
		return nil, err
	}
	const blockSize = 65536
	return &vfs.FSInfo{
		RtMax:       blockSize,
		RtPref:      blockSize,
		RtMult:      4096,
		WtMax:       blockSize,
		WtPref:      blockSize,
		WtMult:      4096,
		DtPref:      blockSize,
		MaxFileSize: 1 << 40,
		TimeDelta:   vfs.Time{Seconds: 1},
		Properties:  vfs.FSFLink | vfs.FSFSymlink | vfs.FSFHomogeneous | vfs.FSFCansettime,
	}, nil
}

func (fs *FS) PathConf(ctx context.Context, id vfs.FileID) (*vfs.PathConf, error) {
	if _, err := fs.get(id); err != nil {
		return nil, err
	}
	return &vfs.PathConf{
		LinkMax:         32000,
		NameMax:         255,
		NoTrunc:         true,
		ChownRestricted: true,
		CaseInsensitive: false,
		CasePreserving:  true,
	}, nil
}

func (fs *FS) Commit(ctx context.Context, id vfs.FileID, offset uint64, count uint32) (uint64, error) {
	if _, err := fs.get(id); err != nil {
		return 0, err
	}
	// All writes already land directly in the node's buffer, so there is
	// nothing pending to flush; just report the stable verifier.
	return fs.fsid, nil
}

func (fs *FS) Access(ctx context.Context, id vfs.FileID, requested vfs.AccessMask) (vfs.AccessMask, error) {
	n, err := fs.get(id)
	if err != nil {
		return 0, err
	}
	if fs.capability == vfs.ReadOnly {
		granted := requested & (vfs.AccessRead | vfs.AccessLookup | vfs.AccessExecute)
		return granted, nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return requested, nil
}
