package models

import (
	"time"
)

// File is the metadata record for one PDF document. FileID is generated by
// the service, never by the store. StorageKey is empty until content has
// been uploaded; IsUploaded is true exactly when a storage key is set.
// OwnerExternalID never changes after creation.
type File struct {
	ID              int64     `json:"-"`
	FileID          string    `json:"file_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	AmountOfPages   int       `json:"amount_of_pages"`
	OwnerExternalID int64     `json:"-"`
	StorageKey      string    `json:"-"`
	IsUploaded      bool      `json:"is_uploaded"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateFileRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	AmountOfPages int    `json:"amount_of_pages" binding:"required,min=1"`
	Description   string `json:"description" binding:"max=1000"`
}

type MergeFilesRequest struct {
	FileIDs []string `json:"file_ids" binding:"required"`
}
