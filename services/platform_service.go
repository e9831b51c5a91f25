package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	scormMimeType       = "application/vnd.ekstep.html-archive"
	scormArchiveType    = "application/zip"
	scormContentType    = "Resource"
	indexSyncObjectType = "content"
)

// PlatformService implements the bodh platform endpoints on top of Sunbird.
type PlatformService struct {
	sunbird providers.SunbirdProvider
	orgID   string
	logger  *zap.Logger
}

// NewPlatformService creates a new PlatformService. orgID is used as the dial
// code publisher and content owner.
func NewPlatformService(sunbird providers.SunbirdProvider, orgID string, logger *zap.Logger) *PlatformService {
	return &PlatformService{
		sunbird: sunbird,
		orgID:   orgID,
		logger:  logger,
	}
}

// GenerateQrCodes attaches a fresh, published dial code to every content item
// in order. A failure is recorded on its item and the rest still run.
func (s *PlatformService) GenerateQrCodes(ctx context.Context, contents []models.ContentItem, user models.UserDetails) ([]models.QrCodeResult, error) {
	results := make([]models.QrCodeResult, 0, len(contents))
	processed := make([]string, 0, len(contents))

	for _, content := range contents {
		result := models.QrCodeResult{
			Identifier: content.Identifier,
			Name:       content.Name,
		}

		code, status, err := s.attachCode(ctx, content.Identifier, user.UserToken)
		if err != nil {
			s.logger.Warn("qr code generation failed",
				zap.String("content_id", content.Identifier),
				zap.Error(err),
			)
			result.Status = models.StatusFailed
			result.Message = sunbirdError(err).Message
		} else {
			result.DialCode = code
			result.Status = status
			processed = append(processed, content.Identifier)
		}
		results = append(results, result)
	}

	if len(processed) > 0 {
		if err := s.sunbird.IndexSync(ctx, user.UserToken, indexSyncObjectType, processed); err != nil {
			s.logger.Warn("index sync failed", zap.Strings("content_ids", processed), zap.Error(err))
		}
	}
	return results, nil
}

func (s *PlatformService) attachCode(ctx context.Context, contentID, token string) (string, string, error) {
	codes, err := s.sunbird.GenerateCodes(ctx, token, 1, s.orgID)
	if err != nil {
		return "", "", err
	}
	code := codes[0]

	if err := s.sunbird.PublishCode(ctx, token, code); err != nil {
		return "", "", err
	}
	if err := s.sunbird.LinkContent(ctx, token, contentID, code); err != nil {
		return "", "", err
	}
	status, err := s.sunbird.CodeStatus(ctx, token, code)
	if err != nil {
		return "", "", err
	}
	return code, status, nil
}

// UploadScormContent creates a content item for a SCORM archive owned by the
// caller, uploads the archive and publishes it.
func (s *PlatformService) UploadScormContent(ctx context.Context, file io.Reader, fileName, name string, user models.UserDetails) (*models.ScormUploadResult, error) {
	if file == nil {
		return nil, ErrContentFileRequired
	}
	if name == "" {
		name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	profile, err := s.sunbird.GetUserProfile(ctx, user.UserToken, user.UserID)
	if err != nil {
		return nil, sunbirdError(err)
	}

	contentID, err := s.sunbird.CreateContent(ctx, user.UserToken, models.ContentMetadata{
		Name:        name,
		Code:        uuid.NewString(),
		MimeType:    scormMimeType,
		ContentType: scormContentType,
		CreatedBy:   user.UserID,
		Creator:     strings.TrimSpace(profile.FirstName + " " + profile.LastName),
		CreatedFor:  []string{s.orgID},
	})
	if err != nil {
		return nil, sunbirdError(err)
	}

	contentURL, err := s.sunbird.UploadContent(ctx, user.UserToken, contentID, fileName, scormArchiveType, file)
	if err != nil {
		return nil, sunbirdError(err)
	}

	if err := s.sunbird.PublishContent(ctx, contentID, user.UserID); err != nil {
		return nil, sunbirdError(err)
	}

	s.logger.Info("scorm content published",
		zap.String("content_id", contentID),
		zap.String("user_id", user.UserID),
	)
	return &models.ScormUploadResult{
		ContentID:  contentID,
		ContentURL: contentURL,
	}, nil
}
