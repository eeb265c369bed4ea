package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/media"
)

const (
	uploadFormFileField        = "file"
	errorValueMissingFile      = "missing_file"
	errorValueMissingImageURL  = "missing_image_url"
	errorValueInvalidImageURL  = "invalid_image_url"
	errorValueUploadFailed     = "upload_failed"
	errorValueDeleteFailed     = "delete_failed"
	errorValueMediaUnavailable = "media_unavailable"
)

// MediaStore bridges the browser to the external object store without
// exposing its credentials client-side.
type MediaStore interface {
	Upload(ctx context.Context, fileName string, contentType string, reader io.Reader, size int64) (media.Object, error)
	Delete(ctx context.Context, imageURL string) error
}

type unavailableMediaStore struct{}

func (unavailableMediaStore) Upload(context.Context, string, string, io.Reader, int64) (media.Object, error) {
	return media.Object{}, media.ErrStoreNotConfigured
}

func (unavailableMediaStore) Delete(context.Context, string) error {
	return media.ErrStoreNotConfigured
}

func resolveMediaStore(store MediaStore) MediaStore {
	if store == nil {
		return unavailableMediaStore{}
	}
	return store
}

// MediaHandlers proxies image uploads and deletions to the object store.
type MediaHandlers struct {
	store  MediaStore
	logger *zap.Logger
}

func NewMediaHandlers(store MediaStore, logger *zap.Logger) *MediaHandlers {
	return &MediaHandlers{
		store:  resolveMediaStore(store),
		logger: logger,
	}
}

type deleteImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// Upload buffers the incoming multipart file and forwards it to the object
// store, returning the resulting public URL.
func (handlers *MediaHandlers) Upload(context *gin.Context) {
	fileHeader, fileErr := context.FormFile(uploadFormFileField)
	if fileErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingFile})
		return
	}

	file, openErr := fileHeader.Open()
	if openErr != nil {
		handlers.logger.Warn("open_upload", zap.Error(openErr))
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingFile})
		return
	}
	defer func() { _ = file.Close() }()

	contentType := fileHeader.Header.Get("Content-Type")
	object, uploadErr := handlers.store.Upload(context.Request.Context(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if uploadErr != nil {
		if errors.Is(uploadErr, media.ErrStoreNotConfigured) {
			context.JSON(http.StatusServiceUnavailable, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMediaUnavailable})
			return
		}
		handlers.logger.Warn("upload_image", zap.String("file", fileHeader.Filename), zap.Error(uploadErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueUploadFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{
		jsonKeySuccess: true,
		"secure_url":   object.URL,
		"public_id":    object.Key,
		"bytes":        object.Size,
	})
}

// DeleteImage removes a previously uploaded object, identified by its
// public URL.
func (handlers *MediaHandlers) DeleteImage(context *gin.Context) {
	var payload deleteImageRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidJSON})
		return
	}
	if payload.ImageURL == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingImageURL})
		return
	}

	if deleteErr := handlers.store.Delete(context.Request.Context(), payload.ImageURL); deleteErr != nil {
		switch {
		case errors.Is(deleteErr, media.ErrStoreNotConfigured):
			context.JSON(http.StatusServiceUnavailable, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMediaUnavailable})
		case errors.Is(deleteErr, media.ErrForeignObjectURL):
			context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidImageURL})
		default:
			handlers.logger.Warn("delete_image", zap.String("url", payload.ImageURL), zap.Error(deleteErr))
			context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueDeleteFailed})
		}
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true})
}
