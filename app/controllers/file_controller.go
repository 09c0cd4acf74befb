package controllers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/models"
	"github.com/elvish-ishaan/dotformer/app/repository"
	"github.com/elvish-ishaan/dotformer/internal/pkg/storage"
	"github.com/elvish-ishaan/dotformer/internal/pkg/transform"
	"github.com/elvish-ishaan/dotformer/internal/pkg/upload"
	"github.com/elvish-ishaan/dotformer/internal/pkg/usercontext"
)

const (
	uploadPrefix  = "uploads"
	maxUploadSize = 50 * 1024 * 1024 // 50MB
)

// FileController serves upload, retrieval, deletion and transformation of
// stored assets.
type FileController struct {
	store   storage.ObjectStorage
	gateway *transform.Gateway
	assets  repository.AssetRepository
}

// NewFileController creates the file controller.
func NewFileController(store storage.ObjectStorage, gateway *transform.Gateway, assets repository.AssetRepository) *FileController {
	return &FileController{store: store, gateway: gateway, assets: assets}
}

// HandleUpload stores a multipart image upload in the source bucket and
// creates its asset record.
func (fc *FileController) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "No file uploaded"})
	}

	if file.Size > maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error":   "file_too_large",
			"message": fmt.Sprintf("File exceeds the maximum upload size of %d bytes", maxUploadSize),
		})
	}

	src, err := file.Open()
	if err != nil {
		fiberlog.Errorf("Error opening uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to process file"})
	}
	data, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		fiberlog.Errorf("Error reading uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to process file"})
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType, err := upload.ValidateImageBySniff(file.Filename, head)
	if err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": "unsupported_media_type", "message": err.Error()})
	}

	assetUUID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(file.Filename))
	key := fmt.Sprintf("%s/%s%s", uploadPrefix, assetUUID, ext)

	url, err := fc.store.Put(c.Context(), fc.store.SourceBucket(), key, data, contentType, "")
	if err != nil {
		fiberlog.Errorf("Error uploading file to storage: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to store file"})
	}

	asset := &models.Asset{
		UUID:     assetUUID,
		UserID:   usercontext.GetUserID(c),
		FileName: file.Filename,
		S3Key:    key,
		FileSize: file.Size,
		FileType: contentType,
		URL:      url,
	}
	upload.ExtractMetadata(asset, data)

	if err := fc.assets.Create(asset); err != nil {
		fiberlog.Errorf("Error creating asset record: %v", err)
		// Best-effort cleanup of the orphaned object.
		if derr := fc.store.Delete(c.Context(), fc.store.SourceBucket(), key); derr != nil {
			fiberlog.Errorf("Error cleaning up orphaned upload %s: %v", key, derr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save file record"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "file": asset})
}

// ListFiles returns one page of the user's assets.
func (fc *FileController) ListFiles(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	assets, err := fc.assets.GetByUserID(userID, offset, limit)
	if err != nil {
		fiberlog.Errorf("Error listing assets for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list files"})
	}
	total, err := fc.assets.CountByUserID(userID)
	if err != nil {
		fiberlog.Errorf("Error counting assets for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list files"})
	}
	storageBytes, err := fc.assets.SumSizeByUserID(userID)
	if err != nil {
		fiberlog.Errorf("Error summing storage for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list files"})
	}

	return c.JSON(fiber.Map{"success": true, "files": assets, "total": total, "storage_bytes": storageBytes, "limit": limit, "offset": offset})
}

// GetFile returns a single asset by UUID.
func (fc *FileController) GetFile(c *fiber.Ctx) error {
	asset, err := fc.assets.GetByUUID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "File not found"})
		}
		fiberlog.Errorf("Error loading asset: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load file"})
	}
	return c.JSON(fiber.Map{"success": true, "file": asset})
}

// DeleteFile removes the stored object and its record. Only the owner or an
// admin may delete.
func (fc *FileController) DeleteFile(c *fiber.Ctx) error {
	asset, err := fc.assets.GetByUUID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "File not found"})
		}
		fiberlog.Errorf("Error loading asset: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load file"})
	}

	if asset.UserID != usercontext.GetUserID(c) && !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "You do not own this file"})
	}

	if err := fc.store.Delete(c.Context(), fc.store.SourceBucket(), asset.S3Key); err != nil {
		fiberlog.Errorf("Error deleting object %s: %v", asset.S3Key, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete file"})
	}
	if err := fc.assets.Delete(asset.ID); err != nil {
		fiberlog.Errorf("Error deleting asset record %d: %v", asset.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete file record"})
	}

	return c.JSON(fiber.Map{"success": true, "message": "File deleted"})
}

// TransformFile resolves a transformation of the asset: a cache hit returns
// the existing artifact URL, a miss produces and stores it first.
func (fc *FileController) TransformFile(c *fiber.Ctx) error {
	asset, err := fc.assets.GetByUUID(c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "File not found"})
		}
		fiberlog.Errorf("Error loading asset: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load file"})
	}

	params := make(map[string]string)
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	opts, err := transform.ParseOptions(params)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	result, err := fc.gateway.Resolve(c.Context(), asset.StoredFileName(), asset.S3Key, opts)
	if err != nil {
		switch {
		case errors.Is(err, transform.ErrSourceNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Source file missing from storage"})
		case errors.Is(err, transform.ErrTransformFailed):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "transform_failed", "message": err.Error()})
		default:
			fiberlog.Errorf("Error resolving transformation for %s: %v", asset.UUID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Transformation failed"})
		}
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}
