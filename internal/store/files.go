package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/docvault/internal/models"
)

// FileStore is the SQL FileRecordStore.
type FileStore struct {
	db *sql.DB
}

func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

func (s *FileStore) Create(ctx context.Context, file *models.File) (*models.File, error) {
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO files (file_id, name, description, amount_of_pages, owner_external_id, storage_key, is_uploaded, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULL, FALSE, $6, $7) RETURNING id`,
		file.FileID, file.Name, file.Description, file.AmountOfPages, file.OwnerExternalID, file.CreatedAt, file.UpdatedAt,
	).Scan(&file.ID)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return file, nil
}

func (s *FileStore) GetByID(ctx context.Context, fileID string) (*models.File, error) {
	file := &models.File{}
	var description, storageKey sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_id, name, description, amount_of_pages, owner_external_id, storage_key, is_uploaded, created_at, updated_at
		 FROM files WHERE file_id = $1`,
		fileID,
	).Scan(&file.ID, &file.FileID, &file.Name, &description, &file.AmountOfPages,
		&file.OwnerExternalID, &storageKey, &file.IsUploaded, &file.CreatedAt, &file.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	file.Description = description.String
	file.StorageKey = storageKey.String
	return file, nil
}

func (s *FileStore) ListByOwner(ctx context.Context, ownerExternalID int64) ([]models.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, name, description, amount_of_pages, owner_external_id, storage_key, is_uploaded, created_at, updated_at
		 FROM files WHERE owner_external_id = $1 ORDER BY created_at`,
		ownerExternalID,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var list []models.File
	for rows.Next() {
		var file models.File
		var description, storageKey sql.NullString
		if err := rows.Scan(&file.ID, &file.FileID, &file.Name, &description, &file.AmountOfPages,
			&file.OwnerExternalID, &storageKey, &file.IsUploaded, &file.CreatedAt, &file.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		file.Description = description.String
		file.StorageKey = storageKey.String
		list = append(list, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return list, nil
}

// SetStorageKey records where the content lives and flags the file uploaded.
func (s *FileStore) SetStorageKey(ctx context.Context, fileID, storageKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET storage_key = $1, is_uploaded = TRUE, updated_at = $2 WHERE file_id = $3`,
		storageKey, time.Now().UTC(), fileID,
	)
	if err != nil {
		return false, fmt.Errorf("set storage key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set storage key: %w", err)
	}
	return n > 0, nil
}

func (s *FileStore) Delete(ctx context.Context, fileID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE file_id = $1`, fileID)
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}
	return n > 0, nil
}
