// Package share owns the lifecycle of share records: issuing tokens,
// mutating policy, revocation and the validation used by anonymous access.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/catalog"
	"github.com/share-gateway/internal/database"
	"github.com/share-gateway/internal/models"
)

const maxTokenAttempts = 5

// TargetStore is the slice of the owner store the registry needs to prove
// ownership of a share target.
type TargetStore interface {
	FileForOwner(ctx context.Context, ownerID, fileID string) (*models.File, error)
	FolderForOwner(ctx context.Context, ownerID, folderID string) (*models.Folder, error)
}

// Options 分享服务参数
type Options struct {
	TokenBytes int
	BcryptCost int
}

// Registry 分享服务
type Registry struct {
	repo    *Repository
	targets TargetStore
	logger  logrus.FieldLogger
	opts    Options

	newToken func(n int) (string, error)
	now      func() time.Time
}

// NewRegistry 创建分享服务
func NewRegistry(db *database.DB, targets TargetStore, logger logrus.FieldLogger, opts Options) *Registry {
	if opts.TokenBytes < DefaultTokenBytes {
		opts.TokenBytes = DefaultTokenBytes
	}
	return &Registry{
		repo:     NewRepository(db),
		targets:  targets,
		logger:   logger,
		opts:     opts,
		newToken: GenerateToken,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Now is the registry clock, truncated to what the database stores.
func (r *Registry) Now() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// CreateShare 创建分享
func (r *Registry) CreateShare(ctx context.Context, ownerID string, req *models.CreateShareRequest) (*models.Share, error) {
	hasFile, hasFolder := req.FileID != "", req.FolderID != ""
	if hasFile == hasFolder {
		return nil, ErrInvalidTarget
	}

	permission := req.Permission
	if permission == "" {
		permission = models.PermissionView
	}
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidPolicy, permission)
	}
	maxDownloads, err := normalizeMaxDownloads(req.MaxDownloads)
	if err != nil {
		return nil, err
	}

	if err := r.checkTarget(ctx, ownerID, req.FileID, req.FolderID); err != nil {
		return nil, err
	}

	now := r.Now()
	s := &models.Share{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Permission:    permission,
		ExpiresAt:     truncateTime(req.ExpiresAt),
		MaxDownloads:  maxDownloads,
		DownloadCount: 0,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if hasFile {
		s.FileID = &req.FileID
	} else {
		s.FolderID = &req.FolderID
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password, r.opts.BcryptCost)
		if err != nil {
			return nil, err
		}
		s.PasswordHash = &hash
	}

	for attempt := 1; ; attempt++ {
		token, err := r.newToken(r.opts.TokenBytes)
		if err != nil {
			return nil, err
		}
		s.Token = token

		err = r.repo.Insert(ctx, s)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTokenCollision) || attempt >= maxTokenAttempts {
			return nil, err
		}
		r.logger.WithField("attempt", attempt).Warn("share token collision, regenerating")
	}

	r.logger.WithFields(logrus.Fields{
		"share_id": s.ID,
		"owner_id": ownerID,
		"target":   s.TargetType(),
	}).Info("share created")
	return s, nil
}

func (r *Registry) checkTarget(ctx context.Context, ownerID, fileID, folderID string) error {
	var err error
	if fileID != "" {
		_, err = r.targets.FileForOwner(ctx, ownerID, fileID)
	} else {
		_, err = r.targets.FolderForOwner(ctx, ownerID, folderID)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrFileNotFound), errors.Is(err, catalog.ErrFolderNotFound):
		return ErrTargetNotFound
	default:
		return fmt.Errorf("check share target: %w", err)
	}
}

// UpdateShare applies only the fields present in req, in one statement.
func (r *Registry) UpdateShare(ctx context.Context, ownerID, shareID string, req *models.UpdateShareRequest) (*models.Share, error) {
	if req.Empty() {
		// nothing to change; still report NotFound for shares the caller
		// does not own
		return r.repo.GetForOwner(ctx, shareID, ownerID)
	}

	u := database.NewUpdateBuilder(r.repo.db.Dialect, "shares")
	if req.Permission.Set {
		if req.Permission.Null || !req.Permission.Value.Valid() {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidPolicy, req.Permission.Value)
		}
		u.Set("permission", string(req.Permission.Value))
	}
	if req.Password.Set {
		if req.Password.Null || req.Password.Value == "" {
			u.Set("password_hash", nil)
		} else {
			hash, err := HashPassword(req.Password.Value, r.opts.BcryptCost)
			if err != nil {
				return nil, err
			}
			u.Set("password_hash", hash)
		}
	}
	if req.ExpiresAt.Set {
		if req.ExpiresAt.Null {
			u.Set("expires_at", nil)
		} else {
			u.Set("expires_at", req.ExpiresAt.Value.UTC().Truncate(time.Microsecond))
		}
	}
	if req.MaxDownloads.Set {
		var limit *int
		if !req.MaxDownloads.Null {
			limit = &req.MaxDownloads.Value
		}
		normalized, err := normalizeMaxDownloads(limit)
		if err != nil {
			return nil, err
		}
		u.Set("max_downloads", database.NullInt(normalized))
	}
	if req.IsActive.Set {
		if req.IsActive.Null {
			return nil, fmt.Errorf("%w: isActive cannot be null", ErrInvalidPolicy)
		}
		u.Set("is_active", req.IsActive.Value)
	}

	u.Set("updated_at", r.Now())

	if err := r.repo.Update(ctx, shareID, ownerID, u); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"share_id": shareID,
		"owner_id": ownerID,
	}).Info("share updated")
	return r.repo.GetForOwner(ctx, shareID, ownerID)
}

// RevokeShare hard-deletes the share. Its token is retired for good.
func (r *Registry) RevokeShare(ctx context.Context, ownerID, shareID string) error {
	if err := r.repo.Delete(ctx, shareID, ownerID, r.Now()); err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"share_id": shareID,
		"owner_id": ownerID,
	}).Info("share revoked")
	return nil
}

// ListShares returns the owner's active shares, newest first. fileID may be
// empty.
func (r *Registry) ListShares(ctx context.Context, ownerID, fileID string) ([]models.Share, error) {
	return r.repo.ListActiveByOwner(ctx, ownerID, fileID)
}

// ResolveForPublicAccess looks a token up without any usability filtering.
func (r *Registry) ResolveForPublicAccess(ctx context.Context, token string) (*models.Share, error) {
	if token == "" {
		return nil, ErrShareNotFound
	}
	return r.repo.GetByToken(ctx, token)
}

// VerifyPassword reports whether password opens s. Shares without a
// password accept anything. A successful check against a stored hash
// updates lastAccessedAt.
func (r *Registry) VerifyPassword(ctx context.Context, s *models.Share, password string) (bool, error) {
	if !s.HasPassword() {
		return true, nil
	}
	ok, err := CheckPassword(*s.PasswordHash, password)
	if err != nil || !ok {
		return false, err
	}
	if err := r.Touch(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// Touch records an access without consuming quota.
func (r *Registry) Touch(ctx context.Context, s *models.Share) error {
	now := r.Now()
	if err := r.repo.Touch(ctx, s.ID, now); err != nil {
		return err
	}
	s.LastAccessedAt = &now
	return nil
}

// RecordDownload takes one download slot. If the share stopped being usable
// since it was read, the reason is returned and nothing is counted.
func (r *Registry) RecordDownload(ctx context.Context, s *models.Share) error {
	now := r.Now()
	ok, err := r.repo.ConsumeDownload(ctx, s.ID, now)
	if err != nil {
		return err
	}
	if ok {
		s.DownloadCount++
		s.LastAccessedAt = &now
		return nil
	}

	current, err := r.repo.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	reason := CheckUsable(current, now)
	if reason == nil {
		// row changed between the update and the reread; treat as spent
		reason = ErrShareDownloadLimitExceeded
	}
	r.logger.WithFields(logrus.Fields{
		"share_id": s.ID,
		"reason":   reason.Error(),
	}).Info("download refused")
	return reason
}

func normalizeMaxDownloads(n *int) (*int, error) {
	if n == nil {
		return nil, nil
	}
	if *n < 0 {
		return nil, fmt.Errorf("%w: maxDownloads must not be negative", ErrInvalidPolicy)
	}
	if *n == 0 {
		return nil, nil
	}
	v := *n
	return &v, nil
}

func truncateTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}
