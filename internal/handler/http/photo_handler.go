package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/domain"
	"github.com/cloudsquares/photoservice/internal/dto"
	"github.com/cloudsquares/photoservice/internal/handler/middleware"
)

type PhotoHandler struct {
	service      domain.PhotoService
	maxFiles     int
	maxBatchSize int64
}

func NewPhotoHandler(service domain.PhotoService, maxFiles, maxTotalSizeMB int) *PhotoHandler {
	return &PhotoHandler{
		service:      service,
		maxFiles:     maxFiles,
		maxBatchSize: int64(maxTotalSizeMB) * 1024 * 1024,
	}
}

func (h *PhotoHandler) RegisterRoutes(engine *ginext.Engine, authMW ginext.HandlerFunc) {
	engine.POST("/upload", authMW, h.UploadPhotos)
	engine.DELETE("/delete-photos", authMW, h.DeletePhotos)
	engine.GET("/presigned-url", authMW, h.PresignURL)
	engine.POST("/presigned-urls", authMW, h.PresignURLs)
}

// UploadPhotos POST /upload
func (h *PhotoHandler) UploadPhotos(c *ginext.Context) {
	authCtx := middleware.AuthFromContext(c)
	if authCtx == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
		return
	}
	if !authCtx.CanUpload() {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "You do not have permission to upload photos"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse multipart form")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrNoFiles.Error()})
		return
	}
	if len(files) > h.maxFiles {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrTooManyFiles.Error()})
		return
	}

	// Declared sizes are checked before any file is read into memory.
	var total int64
	for _, fh := range files {
		total += fh.Size
	}
	if total > h.maxBatchSize {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrBatchTooLarge.Error()})
		return
	}

	batch := &domain.UploadBatch{
		EntityType: strings.ToLower(c.PostForm("entity_type")),
		EntityID:   c.PostForm("entity_id"),
		Access:     c.PostForm("access"),
		MainFirst:  c.PostForm("is_main") == "true",
	}
	if batch.Access == "" {
		batch.Access = domain.AccessPublic
	}
	// Two main-photo request shapes exist: an is_main flag marking the
	// first file, and an explicit zero-based main_index. The index wins
	// when present; an unparseable one means no photo is main.
	if raw := c.PostForm("main_index"); raw != "" {
		idx := -1
		if v, err := strconv.Atoi(raw); err == nil {
			idx = v
		}
		batch.MainIndex = &idx
	}

	batch.Items = make([]domain.UploadItem, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			zlog.Logger.Error().Err(err).Str("file", fh.Filename).Msg("failed to open uploaded file")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read uploaded files"})
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			zlog.Logger.Error().Err(err).Str("file", fh.Filename).Msg("failed to read uploaded file")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read uploaded files"})
			return
		}
		batch.Items = append(batch.Items, domain.UploadItem{
			Filename: fh.Filename,
			Size:     fh.Size,
			Data:     data,
		})
	}

	result, err := h.service.UploadBatch(c.Request.Context(), authCtx, batch)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDispatchFailed):
			// Stored objects are kept and reported truthfully even though
			// the downstream notification failed.
			c.JSON(http.StatusBadGateway, dto.UploadResponse{Results: result.Results, Error: "dispatch_failed"})
		case isValidationError(err):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		default:
			zlog.Logger.Error().Err(err).Msg("failed to upload images")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to upload images"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{Results: result.Results})
}

// DeletePhotos DELETE /delete-photos
func (h *PhotoHandler) DeletePhotos(c *ginext.Context) {
	authCtx := middleware.AuthFromContext(c)
	if authCtx == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
		return
	}
	if !authCtx.CanDelete() {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Access denied: insufficient permissions"})
		return
	}

	var req dto.DeletePhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	result, err := h.service.DeletePhotos(c.Request.Context(), authCtx, &domain.DeleteRequest{
		EntityType: strings.ToLower(req.EntityType),
		EntityID:   req.EntityID,
		Keys:       req.FileURLs,
	})
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing or invalid parameters"})
			return
		}
		zlog.Logger.Error().Err(err).Msg("failed to delete photos")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete photos"})
		return
	}

	c.JSON(http.StatusOK, dto.DeletePhotosResponse{
		Status:  "ok",
		Deleted: result.Deleted,
		Failed:  result.Failed,
	})
}

// PresignURL GET /presigned-url
func (h *PhotoHandler) PresignURL(c *ginext.Context) {
	authCtx := middleware.AuthFromContext(c)
	if authCtx == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
		return
	}
	if !authCtx.CanUpload() {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "You do not have permission to view private files"})
		return
	}

	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing key parameter"})
		return
	}

	url, err := h.service.PresignURL(c.Request.Context(), key)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to generate presigned url")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not generate presigned URL"})
		return
	}

	c.JSON(http.StatusOK, dto.PresignURLResponse{URL: url})
}

// PresignURLs POST /presigned-urls
func (h *PhotoHandler) PresignURLs(c *ginext.Context) {
	authCtx := middleware.AuthFromContext(c)
	if authCtx == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
		return
	}
	if !authCtx.CanUpload() {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "You do not have permission to view private files"})
		return
	}

	var req dto.PresignURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}
	if len(req.Keys) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrMissingKeys.Error()})
		return
	}

	links := h.service.PresignURLs(c.Request.Context(), req.Keys)
	c.JSON(http.StatusOK, dto.PresignURLsResponse{Results: links})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrNoFiles,
		domain.ErrTooManyFiles,
		domain.ErrBatchTooLarge,
		domain.ErrMissingEntityType,
		domain.ErrMissingEntityID,
		domain.ErrInvalidAccess,
		domain.ErrMissingKeys,
		domain.ErrMissingKey,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
