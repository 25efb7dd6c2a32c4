package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-gateway/internal/database"
	"github.com/share-gateway/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db)
}

func TestFileForOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	file := &models.File{Name: "report.pdf", OwnerID: "alice", Size: 42, MimeType: "application/pdf"}
	require.NoError(t, svc.CreateFile(ctx, file))
	assert.NotEmpty(t, file.ID)
	assert.Equal(t, file.ID, file.StorageKey)

	got, err := svc.FileForOwner(ctx, "alice", file.ID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, int64(42), got.Size)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Nil(t, got.FolderID)

	// 所有者不匹配与不存在的报错一致
	_, err = svc.FileForOwner(ctx, "mallory", file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = svc.FileForOwner(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSoftDeletedFileIsHidden(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	file := &models.File{Name: "old.txt", OwnerID: "alice", Size: 1}
	require.NoError(t, svc.CreateFile(ctx, file))
	require.NoError(t, svc.SoftDeleteFile(ctx, "alice", file.ID))

	_, err := svc.FileForOwner(ctx, "alice", file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = svc.File(ctx, file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)

	assert.ErrorIs(t, svc.SoftDeleteFile(ctx, "alice", file.ID), ErrFileNotFound)
}

func TestSoftDeletedFolderIsHidden(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	folder := &models.Folder{Name: "trash", OwnerID: "alice"}
	require.NoError(t, svc.CreateFolder(ctx, folder))

	assert.ErrorIs(t, svc.SoftDeleteFolder(ctx, "bob", folder.ID), ErrFolderNotFound)
	require.NoError(t, svc.SoftDeleteFolder(ctx, "alice", folder.ID))

	_, err := svc.Folder(ctx, folder.ID)
	assert.ErrorIs(t, err, ErrFolderNotFound)
	_, err = svc.FolderForOwner(ctx, "alice", folder.ID)
	assert.ErrorIs(t, err, ErrFolderNotFound)

	assert.ErrorIs(t, svc.SoftDeleteFolder(ctx, "alice", folder.ID), ErrFolderNotFound)
}

func TestFolderForOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	folder := &models.Folder{Name: "photos", OwnerID: "alice"}
	require.NoError(t, svc.CreateFolder(ctx, folder))

	got, err := svc.FolderForOwner(ctx, "alice", folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "/photos", got.Path)

	_, err = svc.FolderForOwner(ctx, "bob", folder.ID)
	assert.ErrorIs(t, err, ErrFolderNotFound)

	_, err = svc.Folder(ctx, folder.ID)
	assert.NoError(t, err)
}

func TestListChildren_OneLevelSortedLiveOnly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	root := &models.Folder{Name: "root", OwnerID: "alice"}
	require.NoError(t, svc.CreateFolder(ctx, root))

	sub := &models.Folder{Name: "zeta", OwnerID: "alice", ParentID: &root.ID}
	require.NoError(t, svc.CreateFolder(ctx, sub))
	alpha := &models.Folder{Name: "alpha", OwnerID: "alice", ParentID: &root.ID}
	require.NoError(t, svc.CreateFolder(ctx, alpha))

	b := &models.File{Name: "b.txt", OwnerID: "alice", FolderID: &root.ID, Size: 2}
	a := &models.File{Name: "a.txt", OwnerID: "alice", FolderID: &root.ID, Size: 1}
	gone := &models.File{Name: "gone.txt", OwnerID: "alice", FolderID: &root.ID, Size: 3}
	nested := &models.File{Name: "nested.txt", OwnerID: "alice", FolderID: &sub.ID, Size: 4}
	for _, f := range []*models.File{b, a, gone, nested} {
		require.NoError(t, svc.CreateFile(ctx, f))
	}
	require.NoError(t, svc.SoftDeleteFile(ctx, "alice", gone.ID))

	folders, files, err := svc.ListChildren(ctx, root.ID)
	require.NoError(t, err)

	require.Len(t, folders, 2)
	assert.Equal(t, "alpha", folders[0].Name)
	assert.Equal(t, "zeta", folders[1].Name)

	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "b.txt", files[1].Name)
}

func TestChildFile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	root := &models.Folder{Name: "root", OwnerID: "alice"}
	require.NoError(t, svc.CreateFolder(ctx, root))
	sub := &models.Folder{Name: "sub", OwnerID: "alice", ParentID: &root.ID}
	require.NoError(t, svc.CreateFolder(ctx, sub))

	direct := &models.File{Name: "direct.txt", OwnerID: "alice", FolderID: &root.ID}
	deep := &models.File{Name: "deep.txt", OwnerID: "alice", FolderID: &sub.ID}
	require.NoError(t, svc.CreateFile(ctx, direct))
	require.NoError(t, svc.CreateFile(ctx, deep))

	got, err := svc.ChildFile(ctx, root.ID, direct.ID)
	require.NoError(t, err)
	assert.Equal(t, direct.ID, got.ID)

	_, err = svc.ChildFile(ctx, root.ID, deep.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}
