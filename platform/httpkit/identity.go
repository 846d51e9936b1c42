// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated caller.
// The identity provider owns the auth user; the application owns the profile
// row that AuthRequired + the auth module's profile middleware resolve.
type Identity interface {
	// AuthUserID returns the identity-provider subject.
	AuthUserID() uuid.UUID
	// ProfileID returns the team-member profile linked to the subject.
	// uuid.Nil until the profile middleware has run.
	ProfileID() uuid.UUID
	// Email returns the email claim.
	Email() string
	// IsAdmin reports whether the profile carries the admin flag.
	IsAdmin() bool
	// IsAuthenticated returns true if a valid token was presented.
	IsAuthenticated() bool
}

type identity struct {
	authUserID    uuid.UUID
	profileID     uuid.UUID
	email         string
	admin         bool
	authenticated bool
}

func (i *identity) AuthUserID() uuid.UUID { return i.authUserID }
func (i *identity) ProfileID() uuid.UUID  { return i.profileID }
func (i *identity) Email() string         { return i.email }
func (i *identity) IsAdmin() bool         { return i.admin }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextAuthUserIDKey)
	if !ok {
		return &identity{}
	}
	authUserID, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	id := &identity{authUserID: authUserID, authenticated: true}
	id.email = c.GetString(ContextEmailKey)
	if profileID, ok := c.Get(ContextProfileIDKey); ok {
		id.profileID, _ = profileID.(uuid.UUID)
	}
	id.admin = c.GetBool(ContextIsAdminKey)
	return id
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// SetProfile stores the resolved profile on the request context.
func SetProfile(c *gin.Context, profileID uuid.UUID, isAdmin bool) {
	c.Set(ContextProfileIDKey, profileID)
	c.Set(ContextIsAdminKey, isAdmin)
}
