package controllers

import (
	"io"
	"net/http"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/logger"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	keywordsFileField  = "keywords"
	keywordsReportName = "keywords.csv"
)

// KeywordsController serves the dictionary keyword endpoints.
type KeywordsController struct {
	keywords  KeywordServiceAPI
	validator *RequestValidator
}

func NewKeywordsController(keywords KeywordServiceAPI, validator *RequestValidator) *KeywordsController {
	return &KeywordsController{keywords: keywords, validator: validator}
}

// Upload applies an uploaded keyword file and streams back the same file with
// a status column. Failures found before the first row are answered as JSON.
// Any file name or content type is accepted; the CSV decoder decides.
func (h *KeywordsController) Upload(c *gin.Context) {
	var file io.Reader

	if header, err := c.FormFile(keywordsFileField); err == nil {
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
		file = f
	}

	sess, err := h.keywords.Upload(c.Request.Context(), file)
	if err != nil {
		logger.For(c, zap.L()).Warn("keyword upload rejected", zap.Error(err))
		apperrors.Respond(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+keywordsReportName)
	c.Header("X-Upload-Session", sess.ID)
	c.Status(http.StatusOK)

	if _, err := sess.WriteTo(c.Writer); err != nil {
		logger.For(c, zap.L()).Warn("keyword report stream ended early",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
	<-sess.Done()
}

// Update adds the keywords of a JSON body and reports a status per keyword.
func (h *KeywordsController) Update(c *gin.Context) {
	var req models.BulkUpdateRequest
	if err := h.validator.BindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := h.keywords.Update(c.Request.Context(), req.Keywords)
	if err != nil {
		logger.For(c, zap.L()).Error("keyword update failed", zap.Error(err))
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": result.Message,
		"result":  result.Result,
	})
}
