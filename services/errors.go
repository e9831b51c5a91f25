package services

import (
	"errors"
	"net/http"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/providers"
)

// Pre-flight failures. They are answered as a JSON error body before any
// output is streamed.
var (
	ErrMissingFile   = apperrors.New(http.StatusBadRequest, "Keywords file is missing", nil)
	ErrIndexNotReady = apperrors.New(http.StatusInternalServerError, "Keywords index mapping is missing", nil)
	ErrParse         = apperrors.New(http.StatusBadRequest, "Keywords file is not a valid csv", nil)
)

// Platform failures.
var (
	ErrContentFileRequired = apperrors.New(http.StatusBadRequest, "Content file is required", nil)
	ErrSunbirdServiceDown  = apperrors.New(http.StatusBadGateway, "Sunbird service is down", nil)
)

// sunbirdError maps a platform client error onto the response taxonomy.
func sunbirdError(err error) *apperrors.Error {
	if errors.Is(err, providers.ErrSunbirdServiceDown) {
		return ErrSunbirdServiceDown.Wrap(err)
	}
	var sbErr *providers.SunbirdError
	if errors.As(err, &sbErr) {
		msg := sbErr.Message
		if msg == "" {
			msg = sbErr.ResponseCode
		}
		return apperrors.New(http.StatusBadGateway, msg, err)
	}
	return apperrors.ErrInternalServer.Wrap(err)
}
