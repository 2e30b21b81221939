package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mishel123hanna/sign-language/internal/authn"
	"github.com/mishel123hanna/sign-language/internal/domain"
)

const claimsKey = "tokenClaims"

// Auth authenticates bearer credentials and attaches the claims.
type Auth struct {
	Authenticator *authn.Authenticator
}

// NewAuth constructs the middleware set.
func NewAuth(authenticator *authn.Authenticator) *Auth {
	return &Auth{Authenticator: authenticator}
}

// RequireAccess admits access tokens that name a user.
func (m *Auth) RequireAccess() gin.HandlerFunc {
	return m.require(authn.RequireAccessWithUser)
}

// RequireRefresh admits refresh tokens.
func (m *Auth) RequireRefresh() gin.HandlerFunc {
	return m.require(authn.RequireRefresh)
}

func (m *Auth) require(policy authn.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Authenticator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"), policy)
		if err != nil {
			AbortWithRejection(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// AbortWithRejection writes the JSON error for a failed authentication.
func AbortWithRejection(c *gin.Context, err error) {
	reason, ok := authn.RejectionReason(err)
	if !ok {
		reason = authn.CredentialInvalid
	}
	status := reason.HTTPStatus()
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": string(reason), "error_description": reason.Description()})
}

// GetClaims returns the claims stored by the auth middleware.
func GetClaims(c *gin.Context) (*domain.TokenClaims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*domain.TokenClaims)
	return claims, ok
}
