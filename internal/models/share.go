package models

import (
	"strings"
	"time"
)

// Permission is the policy flag stored on a share.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionDownload Permission = "download"
	PermissionEdit     Permission = "edit"
)

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	switch p {
	case PermissionView, PermissionDownload, PermissionEdit:
		return true
	}
	return false
}

// TargetType tells whether a share points at a file or a folder.
type TargetType string

const (
	TargetFile   TargetType = "file"
	TargetFolder TargetType = "folder"
)

// Share is the persisted share record.
type Share struct {
	ID             string
	Token          string
	OwnerID        string
	FileID         *string
	FolderID       *string
	Permission     Permission
	PasswordHash   *string
	ExpiresAt      *time.Time
	MaxDownloads   *int
	DownloadCount  int
	IsActive       bool
	LastAccessedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Share) TargetType() TargetType {
	if s.FileID != nil {
		return TargetFile
	}
	return TargetFolder
}

func (s *Share) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

func (s *Share) DownloadLimitReached() bool {
	return s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads
}

// ShareView is the owner-facing projection of a share. It has no field for
// the password hash.
type ShareView struct {
	ID             string     `json:"id"`
	Token          string     `json:"token"`
	OwnerID        string     `json:"ownerId"`
	FileID         *string    `json:"fileId"`
	FolderID       *string    `json:"folderId"`
	Permission     Permission `json:"permission"`
	HasPassword    bool       `json:"hasPassword"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	MaxDownloads   *int       `json:"maxDownloads"`
	DownloadCount  int        `json:"downloadCount"`
	IsActive       bool       `json:"isActive"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	ShareURL       string     `json:"shareUrl"`
}

// NewShareView builds the owner projection; baseURL may be empty.
func NewShareView(s *Share, baseURL string) ShareView {
	return ShareView{
		ID:             s.ID,
		Token:          s.Token,
		OwnerID:        s.OwnerID,
		FileID:         s.FileID,
		FolderID:       s.FolderID,
		Permission:     s.Permission,
		HasPassword:    s.HasPassword(),
		ExpiresAt:      s.ExpiresAt,
		MaxDownloads:   s.MaxDownloads,
		DownloadCount:  s.DownloadCount,
		IsActive:       s.IsActive,
		LastAccessedAt: s.LastAccessedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		ShareURL:       ShareURL(baseURL, s.Token),
	}
}

// ShareURL joins the public base URL and the token.
func ShareURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/s/" + token
}

// PublicShareInfo is what an anonymous client sees when probing a token.
type PublicShareInfo struct {
	Type          TargetType `json:"type"`
	Name          string     `json:"fileName"`
	Size          int64      `json:"fileSize"`
	MimeType      string     `json:"mimeType,omitempty"`
	HasPassword   bool       `json:"hasPassword"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	IsExpired     bool       `json:"isExpired"`
	DownloadCount int        `json:"downloadCount"`
	MaxDownloads  *int       `json:"maxDownloads"`
	Permission    Permission `json:"permission"`
}

// CreateShareRequest is the body of POST /shares.
type CreateShareRequest struct {
	FileID       string     `json:"fileId"`
	FolderID     string     `json:"folderId"`
	Permission   Permission `json:"permission"`
	Password     string     `json:"password"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	MaxDownloads *int       `json:"maxDownloads"`
}

// UpdateShareRequest is the body of PUT /shares/:id. Absent fields are left
// untouched; see Optional.
type UpdateShareRequest struct {
	Permission   Optional[Permission] `json:"permission"`
	Password     Optional[string]     `json:"password"`
	ExpiresAt    Optional[time.Time]  `json:"expiresAt"`
	MaxDownloads Optional[int]        `json:"maxDownloads"`
	IsActive     Optional[bool]       `json:"isActive"`
}

// Empty reports whether the request changes nothing.
func (r *UpdateShareRequest) Empty() bool {
	return !r.Permission.Set && !r.Password.Set && !r.ExpiresAt.Set &&
		!r.MaxDownloads.Set && !r.IsActive.Set
}

type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

type VerifyPasswordResponse struct {
	Valid       bool    `json:"valid"`
	AccessToken *string `json:"accessToken"`
}
