package controllers

import (
	"net/http"
	"path/filepath"
	"strings"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FilesController serves blob storage uploads and URL signing.
type FilesController struct {
	store     FileStore
	validator *RequestValidator
}

func NewFilesController(store FileStore, validator *RequestValidator) *FilesController {
	return &FilesController{store: store, validator: validator}
}

// Upload stores the multipart "file" in the requested (or default) bucket.
// The object is named after the "name" form value, or a fresh uuid keeping
// the original extension.
func (h *FilesController) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		apperrors.Respond(c, apperrors.New(http.StatusBadRequest, "File is required", err))
		return
	}
	if err := h.validator.ValidateFileSize(header); err != nil {
		apperrors.Respond(c, err)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = uuid.NewString() + filepath.Ext(header.Filename)
	}

	f, err := header.Open()
	if err != nil {
		apperrors.Respond(c, apperrors.ErrInternalServer.Wrap(err))
		return
	}
	defer f.Close()

	result, err := h.store.UploadFile(c.Request.Context(), f, name, c.PostForm("bucket"), header.Header.Get("Content-Type"))
	if err != nil {
		zap.L().Error("file upload failed", zap.String("name", name), zap.Error(err))
		apperrors.Respond(c, apperrors.New(http.StatusInternalServerError, "Could not upload file", err))
		return
	}
	respondOK(c, "File uploaded successfully", result)
}

// DownloadableURL presigns a read URL for filePath.
func (h *FilesController) DownloadableURL(c *gin.Context) {
	filePath := strings.TrimSpace(c.Query("filePath"))
	if filePath == "" {
		apperrors.Respond(c, apperrors.New(http.StatusBadRequest, "File path is required", nil))
		return
	}

	url, err := h.store.DownloadableURL(c.Request.Context(), filePath, c.Query("bucket"))
	if err != nil {
		zap.L().Error("downloadable url failed", zap.String("file_path", filePath), zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	respondOK(c, "Url generated successfully", models.DownloadableURLResult{FilePath: filePath, URL: url})
}

// SignedURL presigns a write URL for fileName.
func (h *FilesController) SignedURL(c *gin.Context) {
	fileName := strings.TrimSpace(c.Query("fileName"))
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  http.StatusBadRequest,
			"message": "File name is required",
			"result":  models.SignedURLResult{Success: false, Message: "File name is required"},
		})
		return
	}

	url, headers, err := h.store.SignedUploadURL(c.Request.Context(), fileName, c.Query("bucket"))
	if err != nil || url == "" {
		zap.L().Error("signed url failed", zap.String("file_name", fileName), zap.Error(err))
		result := models.SignedURLResult{Success: false, Message: "Could not generate signed url"}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  http.StatusInternalServerError,
			"message": result.Message,
			"result":  result,
		})
		return
	}

	respondOK(c, "Signed url generated successfully", models.SignedURLResult{
		Success: true,
		URL:     url,
		Name:    fileName,
		Headers: headers,
	})
}
