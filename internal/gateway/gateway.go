// Package gateway serves anonymous requests against share tokens: it
// resolves the token, applies the usability and password checks in order
// and only then reads from the catalog and blob store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/share-gateway/internal/blob"
	"github.com/share-gateway/internal/catalog"
	"github.com/share-gateway/internal/lockout"
	"github.com/share-gateway/internal/models"
	"github.com/share-gateway/internal/share"
)

var (
	ErrTooManyAttempts = Error("too many password attempts")
	ErrWrongShareType  = Error("share does not point at this kind of target")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// Catalog is the read side of the owner store used for public access.
type Catalog interface {
	File(ctx context.Context, fileID string) (*models.File, error)
	Folder(ctx context.Context, folderID string) (*models.Folder, error)
	ChildFile(ctx context.Context, folderID, fileID string) (*models.File, error)
	ListChildren(ctx context.Context, folderID string) ([]models.Folder, []models.File, error)
}

// Blobs opens file bytes.
type Blobs interface {
	Open(ctx context.Context, ownerID, key string) (blob.Object, *blob.ObjectInfo, error)
}

// Admission inspects the object about to be served and may refuse it.
// A refusal is returned unchanged and the download is not counted.
type Admission func(size int64, modTime time.Time) error

// Access carries what an anonymous client presented. Admit is optional.
type Access struct {
	Token    string
	Password string
	ClientIP string
	Admit    Admission
}

// Download is an accepted byte-serving request. The caller must close
// Object.
type Download struct {
	Object   blob.Object
	Name     string
	MimeType string
	Size     int64
	ModTime  time.Time
}

type Gateway struct {
	registry *share.Registry
	catalog  Catalog
	blobs    Blobs
	limiter  *lockout.Limiter
	logger   logrus.FieldLogger
}

func New(registry *share.Registry, cat Catalog, blobs Blobs, limiter *lockout.Limiter, logger logrus.FieldLogger) *Gateway {
	return &Gateway{
		registry: registry,
		catalog:  cat,
		blobs:    blobs,
		limiter:  limiter,
		logger:   logger,
	}
}

// resolve runs the token lookup and the active, expiry and quota checks.
func (g *Gateway) resolve(ctx context.Context, token string) (*models.Share, error) {
	s, err := g.registry.ResolveForPublicAccess(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := share.CheckUsable(s, g.registry.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

// Info returns share metadata. It never asks for the password.
func (g *Gateway) Info(ctx context.Context, token string) (*models.PublicShareInfo, error) {
	s, err := g.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	info := &models.PublicShareInfo{
		Type:          s.TargetType(),
		HasPassword:   s.HasPassword(),
		ExpiresAt:     s.ExpiresAt,
		IsExpired:     s.IsExpired(g.registry.Now()),
		DownloadCount: s.DownloadCount,
		MaxDownloads:  s.MaxDownloads,
		Permission:    s.Permission,
	}

	if s.FileID != nil {
		f, err := g.catalog.File(ctx, *s.FileID)
		if err != nil {
			return nil, targetErr(err)
		}
		info.Name = f.Name
		info.Size = f.Size
		info.MimeType = f.MimeType
		return info, nil
	}

	folder, err := g.catalog.Folder(ctx, *s.FolderID)
	if err != nil {
		return nil, targetErr(err)
	}
	info.Name = folder.Name
	return info, nil
}

// Verify checks a password in isolation. A mismatch is (false, nil).
func (g *Gateway) Verify(ctx context.Context, req Access) (*models.VerifyPasswordResponse, error) {
	s, err := g.resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	if !s.HasPassword() {
		return &models.VerifyPasswordResponse{Valid: true, AccessToken: &s.Token}, nil
	}

	key := lockout.Key(s.Token, req.ClientIP)
	if err := g.checkLockout(ctx, s, key); err != nil {
		return nil, err
	}

	ok, err := g.registry.VerifyPassword(ctx, s, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := g.limiter.Fail(ctx, key); err != nil {
			return nil, fmt.Errorf("record password failure: %w", err)
		}
		return &models.VerifyPasswordResponse{Valid: false}, nil
	}
	if err := g.limiter.Reset(ctx, key); err != nil {
		return nil, fmt.Errorf("reset password failures: %w", err)
	}
	return &models.VerifyPasswordResponse{Valid: true, AccessToken: &s.Token}, nil
}

// OpenDownload serves a file share. The download is counted before the
// object is handed back, so the count does not depend on how much of the
// stream the client reads. Requests refused by req.Admit are not counted.
func (g *Gateway) OpenDownload(ctx context.Context, req Access) (*Download, error) {
	s, err := g.resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if s.FileID == nil {
		return nil, ErrWrongShareType
	}
	if err := g.checkPassword(ctx, s, req); err != nil {
		return nil, err
	}

	f, err := g.catalog.File(ctx, *s.FileID)
	if err != nil {
		return nil, targetErr(err)
	}
	return g.serve(ctx, s, f, req.Admit)
}

// OpenFolderFileDownload serves a file sitting directly inside a shared
// folder.
func (g *Gateway) OpenFolderFileDownload(ctx context.Context, req Access, fileID string) (*Download, error) {
	s, err := g.resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if s.FolderID == nil {
		return nil, ErrWrongShareType
	}
	if err := g.checkPassword(ctx, s, req); err != nil {
		return nil, err
	}

	// 已删除的文件夹不再提供其中的文件
	if _, err := g.catalog.Folder(ctx, *s.FolderID); err != nil {
		return nil, targetErr(err)
	}
	f, err := g.catalog.ChildFile(ctx, *s.FolderID, fileID)
	if err != nil {
		return nil, targetErr(err)
	}
	return g.serve(ctx, s, f, req.Admit)
}

func (g *Gateway) serve(ctx context.Context, s *models.Share, f *models.File, admit Admission) (*Download, error) {
	obj, info, err := g.blobs.Open(ctx, f.OwnerID, f.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, share.ErrTargetNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}

	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = info.ContentType
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	modTime := info.ModTime
	if modTime.IsZero() {
		modTime = f.UpdatedAt
	}

	if admit != nil {
		if err := admit(info.Size, modTime); err != nil {
			obj.Close()
			return nil, err
		}
	}

	if err := g.registry.RecordDownload(ctx, s); err != nil {
		obj.Close()
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"share_id":       s.ID,
		"file_id":        f.ID,
		"download_count": s.DownloadCount,
	}).Info("share download accepted")

	return &Download{
		Object:   obj,
		Name:     f.Name,
		MimeType: mimeType,
		Size:     info.Size,
		ModTime:  modTime,
	}, nil
}

// Contents lists one level of a folder share. It records the access but
// does not consume a download.
func (g *Gateway) Contents(ctx context.Context, req Access) (*models.FolderContents, error) {
	s, err := g.resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if s.FolderID == nil {
		return nil, ErrWrongShareType
	}
	if err := g.checkPassword(ctx, s, req); err != nil {
		return nil, err
	}

	folder, err := g.catalog.Folder(ctx, *s.FolderID)
	if err != nil {
		return nil, targetErr(err)
	}
	folders, files, err := g.catalog.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, err
	}
	if err := g.registry.Touch(ctx, s); err != nil {
		return nil, err
	}

	out := &models.FolderContents{
		Folder:  models.FolderRef{ID: folder.ID, Name: folder.Name},
		Folders: make([]models.FolderEntry, 0, len(folders)),
		Files:   make([]models.FileEntry, 0, len(files)),
	}
	for _, sub := range folders {
		out.Folders = append(out.Folders, models.FolderEntry{ID: sub.ID, Name: sub.Name, CreatedAt: sub.CreatedAt})
	}
	for _, f := range files {
		out.Files = append(out.Files, models.FileEntry{
			ID:        f.ID,
			Name:      f.Name,
			Size:      f.Size,
			MimeType:  f.MimeType,
			CreatedAt: f.CreatedAt,
		})
	}
	return out, nil
}

// checkPassword gates content endpoints. The verify marker is not accepted
// here; only the password itself is.
func (g *Gateway) checkPassword(ctx context.Context, s *models.Share, req Access) error {
	if !s.HasPassword() {
		return nil
	}
	if req.Password == "" {
		return share.ErrPasswordRequired
	}

	key := lockout.Key(s.Token, req.ClientIP)
	if err := g.checkLockout(ctx, s, key); err != nil {
		return err
	}

	ok, err := share.CheckPassword(*s.PasswordHash, req.Password)
	if err != nil {
		return err
	}
	if !ok {
		if err := g.limiter.Fail(ctx, key); err != nil {
			return fmt.Errorf("record password failure: %w", err)
		}
		return share.ErrInvalidPassword
	}
	if err := g.limiter.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset password failures: %w", err)
	}
	return nil
}

func (g *Gateway) checkLockout(ctx context.Context, s *models.Share, key string) error {
	allowed, err := g.limiter.Allowed(ctx, key)
	if err != nil {
		return fmt.Errorf("check password lockout: %w", err)
	}
	if !allowed {
		g.logger.WithField("share_id", s.ID).Warn("share password attempt refused by lockout")
		return ErrTooManyAttempts
	}
	return nil
}

func targetErr(err error) error {
	if errors.Is(err, catalog.ErrFileNotFound) || errors.Is(err, catalog.ErrFolderNotFound) {
		return share.ErrTargetNotFound
	}
	return err
}
