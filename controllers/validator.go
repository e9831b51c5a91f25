package controllers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxUploadSize applies when no limit is configured.
const DefaultMaxUploadSize int64 = 50 * 1024 * 1024

// RequestValidator checks request bodies and uploaded files.
type RequestValidator struct {
	validate      *validator.Validate
	maxUploadSize int64
}

// NewRequestValidator creates a validator. maxUploadSize <= 0 uses DefaultMaxUploadSize.
func NewRequestValidator(maxUploadSize int64) *RequestValidator {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &RequestValidator{
		validate:      validator.New(),
		maxUploadSize: maxUploadSize,
	}
}

// BindJSON decodes the request body into req and validates its struct tags.
func (rv *RequestValidator) BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.New(http.StatusBadRequest, "Invalid request body", err)
	}
	if err := rv.validate.Struct(req); err != nil {
		return apperrors.New(http.StatusBadRequest, validationMessage(err), err)
	}
	return nil
}

// ValidateFileSize rejects files above the configured limit.
func (rv *RequestValidator) ValidateFileSize(file *multipart.FileHeader) error {
	if file.Size > rv.maxUploadSize {
		return apperrors.New(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %dMB)", rv.maxUploadSize/(1024*1024)), nil)
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
