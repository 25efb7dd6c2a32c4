package share

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/share-gateway/internal/database"
	"github.com/share-gateway/internal/models"
)

const shareColumns = "id, token, owner_id, file_id, folder_id, permission, password_hash, expires_at, " +
	"max_downloads, download_count, is_active, last_accessed_at, created_at, updated_at"

// Repository is the SQL access layer for the shares table.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new share. A token already used by a live or revoked share
// yields ErrTokenCollision.
func (r *Repository) Insert(ctx context.Context, s *models.Share) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert share: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = database.NewSelectBuilder(r.db.Dialect, "retired_share_tokens", "1").
		Where("token = ?", s.Token).
		QueryRow(ctx, tx).
		Scan(&one)
	switch {
	case err == nil:
		return ErrTokenCollision
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check retired token: %w", err)
	}

	_, err = database.NewInsertBuilder(r.db.Dialect, "shares").
		Value("id", s.ID).
		Value("token", s.Token).
		Value("owner_id", s.OwnerID).
		Value("file_id", database.NullString(s.FileID)).
		Value("folder_id", database.NullString(s.FolderID)).
		Value("permission", string(s.Permission)).
		Value("password_hash", database.NullString(s.PasswordHash)).
		Value("expires_at", database.NullTime(s.ExpiresAt)).
		Value("max_downloads", database.NullInt(s.MaxDownloads)).
		Value("download_count", s.DownloadCount).
		Value("is_active", s.IsActive).
		Value("last_accessed_at", database.NullTime(s.LastAccessedAt)).
		Value("created_at", s.CreatedAt).
		Value("updated_at", s.UpdatedAt).
		Exec(ctx, tx)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrTokenCollision
		}
		return fmt.Errorf("insert share: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrTokenCollision
		}
		return fmt.Errorf("commit insert share: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Share, error) {
	row := database.NewSelectBuilder(r.db.Dialect, "shares", shareColumns).
		Where("id = ?", id).
		QueryRow(ctx, r.db)
	return scanShare(row)
}

func (r *Repository) GetForOwner(ctx context.Context, id, ownerID string) (*models.Share, error) {
	row := database.NewSelectBuilder(r.db.Dialect, "shares", shareColumns).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		QueryRow(ctx, r.db)
	return scanShare(row)
}

func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	row := database.NewSelectBuilder(r.db.Dialect, "shares", shareColumns).
		Where("token = ?", token).
		QueryRow(ctx, r.db)
	return scanShare(row)
}

// ListActiveByOwner returns active shares newest first, optionally only
// those pointing at fileID.
func (r *Repository) ListActiveByOwner(ctx context.Context, ownerID, fileID string) ([]models.Share, error) {
	b := database.NewSelectBuilder(r.db.Dialect, "shares", shareColumns).
		Where("owner_id = ?", ownerID).
		Where("is_active = ?", true)
	if fileID != "" {
		b.Where("file_id = ?", fileID)
	}
	rows, err := b.OrderBy("created_at DESC", "id DESC").Query(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := []models.Share{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// Update runs a prepared partial update scoped to id and ownerID as one
// statement.
func (r *Repository) Update(ctx context.Context, id, ownerID string, u *database.UpdateBuilder) error {
	res, err := u.Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("update share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update share: %w", err)
	}
	if n == 0 {
		return ErrShareNotFound
	}
	return nil
}

// Delete removes the share and records its token so it is never issued
// again.
func (r *Repository) Delete(ctx context.Context, id, ownerID string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete share: %w", err)
	}
	defer tx.Rollback()

	var token string
	err = database.NewSelectBuilder(r.db.Dialect, "shares", "token").
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		QueryRow(ctx, tx).
		Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShareNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup share: %w", err)
	}

	if _, err := database.NewInsertBuilder(r.db.Dialect, "retired_share_tokens").
		Value("token", token).
		Value("retired_at", now).
		Exec(ctx, tx); err != nil {
		return fmt.Errorf("retire token: %w", err)
	}

	res, err := database.NewDeleteBuilder(r.db.Dialect, "shares").
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx, tx)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n == 0 {
		return ErrShareNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete share: %w", err)
	}
	return nil
}

// Touch sets last_accessed_at.
func (r *Repository) Touch(ctx context.Context, id string, now time.Time) error {
	_, err := database.NewUpdateBuilder(r.db.Dialect, "shares").
		Set("last_accessed_at", now).
		Where("id = ?", id).
		Exec(ctx, r.db)
	if err != nil {
		return fmt.Errorf("touch share: %w", err)
	}
	return nil
}

// ConsumeDownload increments download_count only while the share is still
// usable. The check and the increment are one statement, so two requests
// racing for the last slot cannot both win. It reports whether a slot was
// taken.
func (r *Repository) ConsumeDownload(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := database.NewUpdateBuilder(r.db.Dialect, "shares").
		SetExpr("download_count", "download_count + 1").
		Set("last_accessed_at", now).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Where("(max_downloads IS NULL OR download_count < max_downloads)").
		Exec(ctx, r.db)
	if err != nil {
		return false, fmt.Errorf("consume download: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume download: %w", err)
	}
	return n == 1, nil
}

func scanShare(row database.RowScanner) (*models.Share, error) {
	var (
		s              models.Share
		permission     string
		fileID         sql.NullString
		folderID       sql.NullString
		passwordHash   sql.NullString
		expiresAt      sql.NullTime
		maxDownloads   sql.NullInt64
		lastAccessedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Token, &s.OwnerID, &fileID, &folderID, &permission, &passwordHash,
		&expiresAt, &maxDownloads, &s.DownloadCount, &s.IsActive, &lastAccessedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan share: %w", err)
	}

	s.Permission = models.Permission(permission)
	s.FileID = database.StringPtr(fileID)
	s.FolderID = database.StringPtr(folderID)
	s.PasswordHash = database.StringPtr(passwordHash)
	s.ExpiresAt = database.TimePtr(expiresAt)
	s.MaxDownloads = database.IntPtr(maxDownloads)
	s.LastAccessedAt = database.TimePtr(lastAccessedAt)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
