// Package files implements the document lifecycle: metadata records, content
// upload into object storage, ownership-checked access, deletion and the
// merge workflow with its compensating cleanup. Metadata, blobs and the PDF
// combine capability sit behind the RecordStore, ObjectStore and
// DocumentMerger interfaces.
package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/docvault/internal/models"
)

// PDFContentType is the single accepted MIME type for uploads.
const PDFContentType = "application/pdf"

// mergeNameSources is how many source names make it into a merged file's
// display name; mergeNameMaxLen truncates each of them.
const (
	mergeNameSources = 3
	mergeNameMaxLen  = 10
)

// StorageKey derives the object key for a file id. The same id always maps
// to the same key, so a re-upload overwrites the prior blob.
func StorageKey(fileID string) string {
	return "files/" + fileID + ".pdf"
}

// RecordStore persists file metadata. GetByID returns (nil, nil) on a miss;
// SetStorageKey and Delete report whether a record was actually touched.
type RecordStore interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, fileID string) (*models.File, error)
	ListByOwner(ctx context.Context, ownerExternalID int64) ([]models.File, error)
	SetStorageKey(ctx context.Context, fileID, storageKey string) (bool, error)
	Delete(ctx context.Context, fileID string) (bool, error)
}

// ObjectStore holds binary content blobs. Get returns (nil, nil) on a miss.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// DocumentMerger combines ordered PDF byte streams into one document.
type DocumentMerger interface {
	Combine(ctx context.Context, sources [][]byte) ([]byte, error)
}

// Service is the file domain service. Ownership checks take the requester's
// external id, already resolved by authentication upstream.
type Service struct {
	records RecordStore
	objects ObjectStore
	merger  DocumentMerger
	logger  *logrus.Logger
}

func NewService(records RecordStore, objects ObjectStore, merger DocumentMerger, logger *logrus.Logger) *Service {
	return &Service{
		records: records,
		objects: objects,
		merger:  merger,
		logger:  logger,
	}
}

// Create registers a new file record with no content. The file id is
// generated here, never by the store.
func (s *Service) Create(ctx context.Context, name string, pages int, description string, ownerExternalID int64) (*models.File, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if pages < 1 {
		return nil, fmt.Errorf("%w: amount of pages must be positive", ErrInvalidInput)
	}

	file := &models.File{
		FileID:          uuid.New().String(),
		Name:            name,
		Description:     description,
		AmountOfPages:   pages,
		OwnerExternalID: ownerExternalID,
	}

	created, err := s.records.Create(ctx, file)
	if err != nil {
		s.logger.WithError(err).Error("creating file record")
		return nil, fmt.Errorf("%w: file creation failed", ErrInternal)
	}
	return created, nil
}

// Get fetches a file, checking existence first and ownership second.
func (s *Service) Get(ctx context.Context, fileID string, requesterExternalID int64) (*models.File, error) {
	file, err := s.records.GetByID(ctx, fileID)
	if err != nil {
		s.logger.WithError(err).Error("fetching file record")
		return nil, fmt.Errorf("%w: file lookup failed", ErrInternal)
	}
	if file == nil {
		return nil, ErrFileNotFound
	}
	if file.OwnerExternalID != requesterExternalID {
		return nil, ErrUnauthorizedFileAccess
	}
	return file, nil
}

// ListByOwner returns all files owned by the given user. Order is not
// significant.
func (s *Service) ListByOwner(ctx context.Context, ownerExternalID int64) ([]models.File, error) {
	list, err := s.records.ListByOwner(ctx, ownerExternalID)
	if err != nil {
		s.logger.WithError(err).Error("listing files")
		return nil, fmt.Errorf("%w: file listing failed", ErrInternal)
	}
	return list, nil
}

// UploadContent stores PDF bytes for an owned file and marks the record
// uploaded. Re-uploading silently overwrites the prior blob.
func (s *Service) UploadContent(ctx context.Context, fileID string, requesterExternalID int64, content []byte, contentType string) (*models.File, error) {
	file, err := s.Get(ctx, fileID, requesterExternalID)
	if err != nil {
		return nil, err
	}

	if contentType != PDFContentType {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidContentType, contentType)
	}

	key, err := s.objects.Put(ctx, StorageKey(file.FileID), content, PDFContentType)
	if err != nil {
		s.logger.WithError(err).Error("uploading file content")
		return nil, fmt.Errorf("%w: content upload failed", ErrInternal)
	}

	ok, err := s.records.SetStorageKey(ctx, file.FileID, key)
	if err != nil {
		s.logger.WithError(err).Error("updating storage key")
		return nil, fmt.Errorf("%w: storage key update failed", ErrInternal)
	}
	if !ok {
		// Record disappeared between the get and the update.
		return nil, ErrFileNotFound
	}

	file.StorageKey = key
	file.IsUploaded = true

	s.logger.WithFields(logrus.Fields{
		"file_id": file.FileID,
		"size":    len(content),
	}).Info("file content uploaded")

	return file, nil
}

// Delete removes an owned file: the blob first when one was uploaded, then
// the metadata record.
func (s *Service) Delete(ctx context.Context, fileID string, requesterExternalID int64) error {
	file, err := s.Get(ctx, fileID, requesterExternalID)
	if err != nil {
		return err
	}

	if file.IsUploaded {
		if err := s.objects.Delete(ctx, StorageKey(file.FileID)); err != nil {
			s.logger.WithError(err).Error("deleting file content")
			return fmt.Errorf("%w: content deletion failed", ErrInternal)
		}
	}

	ok, err := s.records.Delete(ctx, fileID)
	if err != nil {
		s.logger.WithError(err).Error("deleting file record")
		return fmt.Errorf("%w: record deletion failed", ErrInternal)
	}
	if !ok {
		return ErrFileNotFound
	}

	s.logger.WithField("file_id", fileID).Info("file deleted")
	return nil
}

// Merge combines the given files, in order, into a new uploaded file owned
// by the requester. The merged record is created as a placeholder before
// content exists; if producing or storing the content fails for any reason,
// including context cancellation, the placeholder is deleted again before
// the error propagates. Source files are never touched.
func (s *Service) Merge(ctx context.Context, fileIDs []string, requesterExternalID int64) (*models.File, error) {
	if len(fileIDs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 files are required for merging", ErrInvalidInput)
	}

	sources := make([]*models.File, 0, len(fileIDs))
	totalPages := 0
	for _, id := range fileIDs {
		file, err := s.Get(ctx, id, requesterExternalID)
		if err != nil {
			return nil, err
		}
		if !file.IsUploaded {
			return nil, fmt.Errorf("%w: %s", ErrFileNotUploaded, id)
		}
		exists, err := s.objects.Exists(ctx, StorageKey(file.FileID))
		if err != nil {
			s.logger.WithError(err).Error("checking blob existence")
			return nil, fmt.Errorf("%w: storage check failed", ErrInternal)
		}
		if !exists {
			// Metadata claims uploaded but the blob is gone: store drift.
			return nil, fmt.Errorf("%w: %s missing from storage", ErrFileNotFound, id)
		}
		sources = append(sources, file)
		totalPages += file.AmountOfPages
	}

	placeholder, err := s.Create(ctx, mergedName(sources), totalPages, mergedDescription(sources), requesterExternalID)
	if err != nil {
		return nil, err
	}

	merged, err := s.produceMergedContent(ctx, placeholder, sources)
	if err != nil {
		s.compensateMerge(ctx, placeholder.FileID)
		return nil, &MergeError{Cause: err}
	}

	s.logger.WithFields(logrus.Fields{
		"file_id": merged.FileID,
		"sources": len(sources),
		"pages":   merged.AmountOfPages,
	}).Info("files merged")

	return merged, nil
}

// produceMergedContent downloads the source blobs in input order, combines
// them, and uploads the result under the placeholder's id.
func (s *Service) produceMergedContent(ctx context.Context, placeholder *models.File, sources []*models.File) (*models.File, error) {
	streams := make([][]byte, 0, len(sources))
	for _, src := range sources {
		data, err := s.objects.Get(ctx, StorageKey(src.FileID))
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", src.FileID, err)
		}
		if data == nil {
			return nil, fmt.Errorf("download %s: blob missing", src.FileID)
		}
		streams = append(streams, data)
	}

	combined, err := s.merger.Combine(ctx, streams)
	if err != nil {
		return nil, fmt.Errorf("combine documents: %w", err)
	}

	key, err := s.objects.Put(ctx, StorageKey(placeholder.FileID), combined, PDFContentType)
	if err != nil {
		return nil, fmt.Errorf("upload merged content: %w", err)
	}

	ok, err := s.records.SetStorageKey(ctx, placeholder.FileID, key)
	if err != nil {
		return nil, fmt.Errorf("update merged record: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("update merged record: record gone")
	}

	placeholder.StorageKey = key
	placeholder.IsUploaded = true
	return placeholder, nil
}

// compensateMerge unwinds the placeholder record of a failed merge. It must
// run even when the merge failed because ctx was cancelled, so the delete
// uses a detached context. There is no cross-store transaction; this delete
// is the only rollback the workflow has.
func (s *Service) compensateMerge(ctx context.Context, fileID string) {
	if _, err := s.records.Delete(context.WithoutCancel(ctx), fileID); err != nil {
		s.logger.WithError(err).WithField("file_id", fileID).Error("cleaning up merge placeholder")
	}
}

// mergedName synthesizes the display name of a merged file from the first
// few source names, e.g. merged_report_invoice_scan_and_2_more.
func mergedName(sources []*models.File) string {
	parts := make([]string, 0, mergeNameSources)
	for i, src := range sources {
		if i == mergeNameSources {
			break
		}
		name := src.Name
		if runes := []rune(name); len(runes) > mergeNameMaxLen {
			name = string(runes[:mergeNameMaxLen])
		}
		parts = append(parts, name)
	}
	name := "merged_" + strings.Join(parts, "_")
	if extra := len(sources) - mergeNameSources; extra > 0 {
		name += fmt.Sprintf("_and_%d_more", extra)
	}
	return name
}

func mergedDescription(sources []*models.File) string {
	return fmt.Sprintf("Merged from %d files", len(sources))
}
