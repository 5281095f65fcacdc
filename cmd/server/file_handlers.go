package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docvault/internal/files"
	"github.com/docvault/internal/middleware"
	"github.com/docvault/internal/models"
)

func handleCreateFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		owner := c.GetInt64(middleware.CtxExternalID)
		file, err := fileService.Create(c.Request.Context(), req.Name, req.AmountOfPages, req.Description, owner)
		if err != nil {
			writeFileError(c, err)
			return
		}

		c.JSON(http.StatusCreated, file)
	}
}

func handleListFiles(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetInt64(middleware.CtxExternalID)
		list, err := fileService.ListByOwner(c.Request.Context(), owner)
		if err != nil {
			writeFileError(c, err)
			return
		}
		if list == nil {
			list = []models.File{}
		}
		c.JSON(http.StatusOK, gin.H{"files": list})
	}
}

func handleGetFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetInt64(middleware.CtxExternalID)
		file, err := fileService.Get(c.Request.Context(), c.Param("id"), owner)
		if err != nil {
			writeFileError(c, err)
			return
		}
		c.JSON(http.StatusOK, file)
	}
}

// handleUploadContent accepts a multipart form with a single "file" part.
// The declared part content type decides acceptance; the bytes themselves
// are not inspected.
func handleUploadContent(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part"})
			return
		}

		part, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file part"})
			return
		}
		defer part.Close()

		content, err := io.ReadAll(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file part"})
			return
		}

		owner := c.GetInt64(middleware.CtxExternalID)
		file, err := fileService.UploadContent(c.Request.Context(), c.Param("id"), owner,
			content, header.Header.Get("Content-Type"))
		if err != nil {
			writeFileError(c, err)
			return
		}

		c.JSON(http.StatusOK, file)
	}
}

func handleDeleteFile(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetInt64(middleware.CtxExternalID)
		if err := fileService.Delete(c.Request.Context(), c.Param("id"), owner); err != nil {
			writeFileError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
	}
}

func handleMergeFiles(fileService *files.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MergeFilesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		owner := c.GetInt64(middleware.CtxExternalID)
		file, err := fileService.Merge(c.Request.Context(), req.FileIDs, owner)
		if err != nil {
			writeFileError(c, err)
			return
		}

		c.JSON(http.StatusCreated, file)
	}
}

// writeFileError maps domain errors to stable HTTP classes: not-found 404,
// unauthorized 403, validation 400, not-uploaded conflict 409, everything
// else 500.
func writeFileError(c *gin.Context, err error) {
	var mergeErr *files.MergeError
	switch {
	case errors.Is(err, files.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, files.ErrUnauthorizedFileAccess):
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this file"})
	case errors.Is(err, files.ErrInvalidContentType),
		errors.Is(err, files.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, files.ErrFileNotUploaded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &mergeErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to merge files"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
