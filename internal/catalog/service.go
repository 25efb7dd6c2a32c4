// Package catalog is the owner store: the files and folders tables the
// share subsystem checks ownership against and lists for folder shares.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/share-gateway/internal/database"
	"github.com/share-gateway/internal/models"
)

var (
	ErrFileNotFound   = Error("file not found")
	ErrFolderNotFound = Error("folder not found")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	folderColumns = "id, name, owner_id, parent_id, path, deleted_at, created_at, updated_at"
	fileColumns   = "id, name, owner_id, folder_id, path, storage_key, size, mime_type, checksum, deleted_at, created_at, updated_at"
)

type Service struct {
	db *database.DB
}

func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// FileForOwner returns the file if it exists, belongs to ownerID and is not
// soft-deleted.
func (s *Service) FileForOwner(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	row := database.NewSelectBuilder(s.db.Dialect, "files", fileColumns).
		Where("id = ?", fileID).
		Where("owner_id = ?", ownerID).
		Where("deleted_at IS NULL").
		QueryRow(ctx, s.db)
	return scanFile(row)
}

// FolderForOwner is the folder counterpart of FileForOwner.
func (s *Service) FolderForOwner(ctx context.Context, ownerID, folderID string) (*models.Folder, error) {
	row := database.NewSelectBuilder(s.db.Dialect, "folders", folderColumns).
		Where("id = ?", folderID).
		Where("owner_id = ?", ownerID).
		Where("deleted_at IS NULL").
		QueryRow(ctx, s.db)
	return scanFolder(row)
}

// File returns a live file regardless of owner.
func (s *Service) File(ctx context.Context, fileID string) (*models.File, error) {
	row := database.NewSelectBuilder(s.db.Dialect, "files", fileColumns).
		Where("id = ?", fileID).
		Where("deleted_at IS NULL").
		QueryRow(ctx, s.db)
	return scanFile(row)
}

// Folder returns a live folder regardless of owner.
func (s *Service) Folder(ctx context.Context, folderID string) (*models.Folder, error) {
	row := database.NewSelectBuilder(s.db.Dialect, "folders", folderColumns).
		Where("id = ?", folderID).
		Where("deleted_at IS NULL").
		QueryRow(ctx, s.db)
	return scanFolder(row)
}

// ChildFile returns a live file that sits directly inside folderID.
func (s *Service) ChildFile(ctx context.Context, folderID, fileID string) (*models.File, error) {
	row := database.NewSelectBuilder(s.db.Dialect, "files", fileColumns).
		Where("id = ?", fileID).
		Where("folder_id = ?", folderID).
		Where("deleted_at IS NULL").
		QueryRow(ctx, s.db)
	return scanFile(row)
}

// ListChildren returns the immediate live subfolders and files of folderID,
// each sorted by name. It does not recurse.
func (s *Service) ListChildren(ctx context.Context, folderID string) ([]models.Folder, []models.File, error) {
	folderRows, err := database.NewSelectBuilder(s.db.Dialect, "folders", folderColumns).
		Where("parent_id = ?", folderID).
		Where("deleted_at IS NULL").
		OrderBy("name ASC").
		Query(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("list folders: %w", err)
	}
	folders, err := collect(folderRows, scanFolder)
	if err != nil {
		return nil, nil, fmt.Errorf("list folders: %w", err)
	}

	fileRows, err := database.NewSelectBuilder(s.db.Dialect, "files", fileColumns).
		Where("folder_id = ?", folderID).
		Where("deleted_at IS NULL").
		OrderBy("name ASC").
		Query(ctx, s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}
	files, err := collect(fileRows, scanFile)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}

	return folders, files, nil
}

// CreateFolder inserts a folder; ID and timestamps are filled in when empty.
func (s *Service) CreateFolder(ctx context.Context, f *models.Folder) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	stampTimes(&f.CreatedAt, &f.UpdatedAt)
	if f.Path == "" {
		f.Path = "/" + f.Name
	}

	_, err := database.NewInsertBuilder(s.db.Dialect, "folders").
		Value("id", f.ID).
		Value("name", f.Name).
		Value("owner_id", f.OwnerID).
		Value("parent_id", database.NullString(f.ParentID)).
		Value("path", f.Path).
		Value("deleted_at", database.NullTime(f.DeletedAt)).
		Value("created_at", f.CreatedAt).
		Value("updated_at", f.UpdatedAt).
		Exec(ctx, s.db)
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// CreateFile inserts a file row; ID and timestamps are filled in when empty.
func (s *Service) CreateFile(ctx context.Context, f *models.File) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.StorageKey == "" {
		f.StorageKey = f.ID
	}
	stampTimes(&f.CreatedAt, &f.UpdatedAt)
	if f.Path == "" {
		f.Path = "/" + f.Name
	}

	_, err := database.NewInsertBuilder(s.db.Dialect, "files").
		Value("id", f.ID).
		Value("name", f.Name).
		Value("owner_id", f.OwnerID).
		Value("folder_id", database.NullString(f.FolderID)).
		Value("path", f.Path).
		Value("storage_key", f.StorageKey).
		Value("size", f.Size).
		Value("mime_type", nullString(f.MimeType)).
		Value("checksum", nullString(f.Checksum)).
		Value("deleted_at", database.NullTime(f.DeletedAt)).
		Value("created_at", f.CreatedAt).
		Value("updated_at", f.UpdatedAt).
		Exec(ctx, s.db)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// SoftDeleteFile marks a file deleted without removing its row.
func (s *Service) SoftDeleteFile(ctx context.Context, ownerID, fileID string) error {
	now := time.Now().UTC()
	res, err := database.NewUpdateBuilder(s.db.Dialect, "files").
		Set("deleted_at", now).
		Set("updated_at", now).
		Where("id = ?", fileID).
		Where("owner_id = ?", ownerID).
		Where("deleted_at IS NULL").
		Exec(ctx, s.db)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// SoftDeleteFolder marks a folder deleted. Its children are left as they
// are; a share on the folder stops resolving its target.
func (s *Service) SoftDeleteFolder(ctx context.Context, ownerID, folderID string) error {
	now := time.Now().UTC()
	res, err := database.NewUpdateBuilder(s.db.Dialect, "folders").
		Set("deleted_at", now).
		Set("updated_at", now).
		Where("id = ?", folderID).
		Where("owner_id = ?", ownerID).
		Where("deleted_at IS NULL").
		Exec(ctx, s.db)
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete folder: %w", err)
	}
	if n == 0 {
		return ErrFolderNotFound
	}
	return nil
}

func stampTimes(created, updated *time.Time) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func collect[T any](rows *sql.Rows, scan func(database.RowScanner) (*T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanFolder(row database.RowScanner) (*models.Folder, error) {
	var (
		f         models.Folder
		parentID  sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &parentID, &f.Path, &deletedAt, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	f.ParentID = database.StringPtr(parentID)
	f.DeletedAt = database.TimePtr(deletedAt)
	return &f, nil
}

func scanFile(row database.RowScanner) (*models.File, error) {
	var (
		f         models.File
		folderID  sql.NullString
		mimeType  sql.NullString
		checksum  sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &folderID, &f.Path, &f.StorageKey, &f.Size,
		&mimeType, &checksum, &deletedAt, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	f.FolderID = database.StringPtr(folderID)
	f.MimeType = mimeType.String
	f.Checksum = checksum.String
	f.DeletedAt = database.TimePtr(deletedAt)
	return &f, nil
}
