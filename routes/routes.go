package routes

import (
	"net/http"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/middleware"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/controllers"

	"github.com/gin-gonic/gin"
)

// BasePath prefixes every API route.
const BasePath = "/sunbird/api/v1"

// KeywordsUploadPath is the streamed upload route. It runs without the
// request timeout since the report is written while rows are applied.
const KeywordsUploadPath = BasePath + "/dictionary/keywords/upload"

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Keywords *controllers.KeywordsController
	Platform *controllers.PlatformController
	Files    *controllers.FilesController
}

// RegisterRoutes mounts the API. uploadLimiter may be nil to disable rate limiting.
func RegisterRoutes(r *gin.Engine, h Controllers, uploadLimiter *middleware.RateLimiter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := r.Group(BasePath)

	dictionary := api.Group("/dictionary/keywords")
	{
		upload := []gin.HandlerFunc{h.Keywords.Upload}
		if uploadLimiter != nil {
			upload = append([]gin.HandlerFunc{middleware.RateLimit(uploadLimiter)}, upload...)
		}
		dictionary.POST("/upload", upload...)
		dictionary.POST("/update", h.Keywords.Update)
	}

	platform := api.Group("/bodh/platform", middleware.UserDetails())
	{
		platform.POST("/generate", h.Platform.Generate)
		platform.POST("/uploadScromContent", h.Platform.UploadScormContent)
	}

	files := api.Group("/files")
	{
		files.POST("/upload", h.Files.Upload)
		files.GET("/downloadableUrl", h.Files.DownloadableURL)
		files.GET("/signedUrl", h.Files.SignedURL)
	}
}
