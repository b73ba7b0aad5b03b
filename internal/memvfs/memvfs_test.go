package memvfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/nfs-mamont-mirror/internal/vfs"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	id, attr, err := fs.Create(ctx, root, "hello.txt", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)
	require.Equal(t, vfs.TypeRegular, attr.Type)

	n, committed, _, err := fs.Write(ctx, id, 0, []byte("hello world"), vfs.FileSync)
	require.NoError(t, err)
	require.Equal(t, uint32(11), n)
	require.Equal(t, vfs.FileSync, committed)

	data, eof, err := fs.Read(ctx, id, 0, 100)
	require.NoError(t, err)
	require.True(t, eof)
	require.Equal(t, "hello world", string(data))
}

func TestLookupFindsCreatedFile(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	id, _, err := fs.Create(ctx, root, "a", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)

	found, err := fs.Lookup(ctx, root, "a")
	require.NoError(t, err)
	require.Equal(t, id, found)

	parent, err := fs.Lookup(ctx, root, "..")
	require.NoError(t, err)
	require.Equal(t, root, parent)
}

func TestMkDirAndReadDir(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	_, _, err := fs.MkDir(ctx, root, "sub", &vfs.SetAttrs{})
	require.NoError(t, err)
	_, _, err = fs.Create(ctx, root, "file", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)

	page, err := fs.ReadDir(ctx, root, 0, 0, 8192)
	require.NoError(t, err)
	require.True(t, page.EOF)
	require.Len(t, page.Entries, 2)

	_, err = fs.ReadDir(ctx, root, 1, page.Cookieverf+1, 8192)
	require.Error(t, err)
}

func TestCreateGuardedRejectsExisting(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	_, _, err := fs.Create(ctx, root, "dup", &vfs.SetAttrs{}, vfs.Guarded, 0)
	require.NoError(t, err)
	_, _, err = fs.Create(ctx, root, "dup", &vfs.SetAttrs{}, vfs.Guarded, 0)
	require.Error(t, err)
}

func TestCreateExclusiveReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	id1, _, err := fs.Create(ctx, root, "x", nil, vfs.Exclusive, 42)
	require.NoError(t, err)
	id2, _, err := fs.Create(ctx, root, "x", nil, vfs.Exclusive, 42)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	_, _, err = fs.Create(ctx, root, "x", nil, vfs.Exclusive, 99)
	require.Error(t, err)
}

func TestSymlinkReadLink(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	id, attr, err := fs.Symlink(ctx, root, "link", "/target", &vfs.SetAttrs{})
	require.NoError(t, err)
	require.Equal(t, vfs.TypeLink, attr.Type)

	target, err := fs.ReadLink(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "/target", target)
}

func TestRenameMovesEntryBetweenDirectories(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	subID, _, err := fs.MkDir(ctx, root, "sub", &vfs.SetAttrs{})
	require.NoError(t, err)
	fileID, _, err := fs.Create(ctx, root, "a", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)

	err = fs.Rename(ctx, root, "a", subID, "b")
	require.NoError(t, err)

	_, err = fs.Lookup(ctx, root, "a")
	require.Error(t, err)

	found, err := fs.Lookup(ctx, subID, "b")
	require.NoError(t, err)
	require.Equal(t, fileID, found)
}

func TestRmDirRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	subID, _, err := fs.MkDir(ctx, root, "sub", &vfs.SetAttrs{})
	require.NoError(t, err)
	_, _, err = fs.Create(ctx, subID, "child", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)

	err = fs.RmDir(ctx, root, "sub")
	require.Error(t, err)

	require.NoError(t, fs.Remove(ctx, subID, "child"))
	require.NoError(t, fs.RmDir(ctx, root, "sub"))
}

func TestLinkIncrementsNlink(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadWrite)
	root := fs.RootDir(ctx)

	id, attr, err := fs.Create(ctx, root, "a", &vfs.SetAttrs{}, vfs.Unchecked, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), attr.Nlink)

	err = fs.Link(ctx, id, root, "b")
	require.NoError(t, err)

	updated, err := fs.GetAttr(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint32(2), updated.Nlink)
}

func TestAccessReadOnlyBackendDeniesModify(t *testing.T) {
	ctx := context.Background()
	fs := New(vfs.ReadOnly)
	root := fs.RootDir(ctx)

	granted, err := fs.Access(ctx, root, vfs.AccessRead|vfs.AccessModify)
	require.NoError(t, err)
	require.Equal(t, vfs.AccessRead, granted)
}
