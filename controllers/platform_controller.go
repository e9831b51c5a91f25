package controllers

import (
	"io"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/logger"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/middleware"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const scormFileField = "contentData"

// PlatformController serves the bodh platform endpoints. Routes must be
// registered behind middleware.UserDetails.
type PlatformController struct {
	platform  PlatformServiceAPI
	validator *RequestValidator
}

func NewPlatformController(platform PlatformServiceAPI, validator *RequestValidator) *PlatformController {
	return &PlatformController{platform: platform, validator: validator}
}

// Generate attaches a QR (dial) code to every listed content item.
func (h *PlatformController) Generate(c *gin.Context) {
	user, ok := middleware.GetUserDetails(c)
	if !ok {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var req models.GenerateQrCodesRequest
	if err := h.validator.BindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	codes, err := h.platform.GenerateQrCodes(c.Request.Context(), req.ContentData, user)
	if err != nil {
		logger.For(c, zap.L()).Error("qr code generation failed", zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	respondOK(c, "Qr codes generated successfully", codes)
}

// UploadScormContent creates, uploads and publishes a SCORM archive.
func (h *PlatformController) UploadScormContent(c *gin.Context) {
	user, ok := middleware.GetUserDetails(c)
	if !ok {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return
	}

	var (
		file     io.Reader
		fileName string
	)
	if header, err := c.FormFile(scormFileField); err == nil {
		if err := h.validator.ValidateFileSize(header); err != nil {
			apperrors.Respond(c, err)
			return
		}
		f, err := header.Open()
		if err != nil {
			apperrors.Respond(c, apperrors.ErrInternalServer.Wrap(err))
			return
		}
		defer f.Close()
		file, fileName = f, header.Filename
	}

	result, err := h.platform.UploadScormContent(c.Request.Context(), file, fileName, c.Query("name"), user)
	if err != nil {
		logger.For(c, zap.L()).Error("scorm upload failed", zap.String("user_id", user.UserID), zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	respondOK(c, "Successfully uploaded content", result)
}
