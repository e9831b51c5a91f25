package middleware

import (
	"fmt"
	"strings"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// UserTokenHeader carries the caller's platform access token.
const UserTokenHeader = "X-authenticated-user-token"

const userDetailsKey = "user_details"

// UserIDFromToken extracts the user id from an access token's subject. Keycloak
// federated subjects look like "f:<provider>:<user id>"; the last segment is the id.
// The signature is not checked here, the platform checks it on every call.
func UserIDFromToken(tokenStr string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("invalid token: missing subject")
	}
	parts := strings.Split(sub, ":")
	return parts[len(parts)-1], nil
}

// UserDetails requires a user token and stores the caller's identity for
// handlers. Missing or unreadable tokens are rejected with 401.
func UserDetails() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(UserTokenHeader))
		if token == "" {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}

		userID, err := UserIDFromToken(token)
		if err != nil {
			apperrors.Respond(c, apperrors.ErrUnauthorized.Wrap(err))
			return
		}

		c.Set(userDetailsKey, models.UserDetails{UserID: userID, UserToken: token})
		c.Next()
	}
}

// GetUserDetails returns the identity stored by UserDetails.
func GetUserDetails(c *gin.Context) (models.UserDetails, bool) {
	v, ok := c.Get(userDetailsKey)
	if !ok {
		return models.UserDetails{}, false
	}
	user, ok := v.(models.UserDetails)
	return user, ok
}
