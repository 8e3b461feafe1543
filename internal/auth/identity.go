package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers set by the API gateway after it has validated the end-user token.
// Identity is treated as already resolved and trustworthy by the time a
// request reaches these services.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUserEmail    = "X-User-Email"
	HeaderUserAdmin    = "X-User-Admin"
	HeaderServiceToken = "x-service-token"
)

const identityKey = "identity"

// Identity is the resolved caller of a request: either an end user (UserID
// set) or a peer service (Service set).
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
	Service string
}

// IsService reports whether the caller is a peer service rather than an
// end user. Service callers skip ownership checks.
func (id *Identity) IsService() bool {
	return id != nil && id.Service != ""
}

// CanAccess reports whether the caller may operate on a resource owned by
// ownerID: service callers and admins always, users only their own.
func (id *Identity) CanAccess(ownerID string) bool {
	if id == nil {
		return false
	}
	if id.IsService() || id.IsAdmin {
		return true
	}
	return id.UserID == ownerID
}

// Middleware resolves the caller identity from gateway headers or a service
// token and aborts unauthenticated requests.
func Middleware(serviceSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.GetHeader(HeaderServiceToken); token != "" {
			service, err := VerifyServiceToken(token, serviceSecret)
			if err != nil {
				logger.Warn("rejected invalid service token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid service token"})
				return
			}
			c.Set(identityKey, &Identity{Service: service})
			c.Next()
			return
		}

		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		c.Set(identityKey, &Identity{
			UserID:  userID,
			Email:   c.GetHeader(HeaderUserEmail),
			IsAdmin: c.GetHeader(HeaderUserAdmin) == "true",
		})
		c.Next()
	}
}

// RequireAdmin aborts requests from callers that are neither admins nor
// peer services.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := FromContext(c)
		if id == nil || (!id.IsAdmin && !id.IsService()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the resolved identity for the request, or nil.
func FromContext(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}
