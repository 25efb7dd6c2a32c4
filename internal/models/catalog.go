package models

import "time"

type Folder struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"ownerId"`
	ParentID  *string    `json:"parentId"`
	Path      string     `json:"path"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type File struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"ownerId"`
	FolderID   *string    `json:"folderId"`
	Path       string     `json:"path"`
	StorageKey string     `json:"-"`
	Size       int64      `json:"size"`
	MimeType   string     `json:"mimeType"`
	Checksum   string     `json:"checksum,omitempty"`
	DeletedAt  *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FolderEntry and FileEntry are the public listing rows of a shared folder.
type FolderEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type FileEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderContents is the one-level listing served for a folder share.
type FolderContents struct {
	Folder  FolderRef     `json:"folder"`
	Folders []FolderEntry `json:"folders"`
	Files   []FileEntry   `json:"files"`
}
