package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
	awspkg "github.com/DIKSHA-NCTE/sl-sunbird-service/pkg/aws"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/services"

	"github.com/gin-gonic/gin"
)

// KeywordServiceAPI is implemented by services.KeywordService.
type KeywordServiceAPI interface {
	Upload(ctx context.Context, file io.Reader) (*services.UploadSession, error)
	Update(ctx context.Context, words []string) (*models.BulkUpdateResult, error)
}

// PlatformServiceAPI is implemented by services.PlatformService.
type PlatformServiceAPI interface {
	GenerateQrCodes(ctx context.Context, contents []models.ContentItem, user models.UserDetails) ([]models.QrCodeResult, error)
	UploadScormContent(ctx context.Context, file io.Reader, fileName, name string, user models.UserDetails) (*models.ScormUploadResult, error)
}

// FileStore is implemented by awspkg.BlobStore.
type FileStore interface {
	DefaultBucket() string
	UploadFile(ctx context.Context, body io.Reader, name, bucket, contentType string) (*awspkg.UploadResult, error)
	DownloadableURL(ctx context.Context, filePath, bucket string) (string, error)
	SignedUploadURL(ctx context.Context, fileName, bucket string) (string, map[string]string, error)
}

// respondOK writes the success envelope shared by the JSON endpoints.
func respondOK(c *gin.Context, message string, result interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": message,
		"result":  result,
	})
}
