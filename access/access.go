package access

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"privateblog/models"
)

const (
	SessionKey = "user_id"
	LoginPath  = "/auth/login/"

	identityKey = "identity"
)

// Role is the access level of the acting identity. Levels are ordered: each
// one includes everything the previous one may do.
type Role int

const (
	Anonymous Role = iota
	Member
	Staff
)

func (r Role) String() string {
	switch r {
	case Member:
		return "member"
	case Staff:
		return "staff"
	default:
		return "anonymous"
	}
}

func RoleOf(user *models.User) Role {
	switch {
	case user == nil:
		return Anonymous
	case user.IsStaff:
		return Staff
	default:
		return Member
	}
}

// Identity is who is making the request. User is nil for anonymous visitors.
type Identity struct {
	User *models.User
	Role Role
}

func (i Identity) IsAuthenticated() bool {
	return i.User != nil
}

func (i Identity) UserID() uint {
	if i.User == nil {
		return 0
	}
	return i.User.ID
}

// Allows reports whether identity holds at least the required role.
func Allows(identity Identity, required Role) bool {
	return identity.Role >= required
}

func CanComment(identity Identity) bool     { return Allows(identity, Member) }
func CanLike(identity Identity) bool        { return Allows(identity, Member) }
func CanMessage(identity Identity) bool     { return Allows(identity, Member) }
func CanManagePosts(identity Identity) bool { return Allows(identity, Staff) }
func CanReply(identity Identity) bool       { return Allows(identity, Staff) }

// Identify resolves the session user into an Identity for every request.
// A session pointing at a deleted user is cleared.
func Identify(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity{Role: Anonymous}

		session := sessions.Default(c)
		if id, ok := sessionUserID(session.Get(SessionKey)); ok {
			var user models.User
			if err := db.First(&user, id).Error; err == nil {
				identity = Identity{User: &user, Role: RoleOf(&user)}
			} else {
				session.Clear()
				session.Save()
			}
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Current returns the identity attached by Identify, anonymous if none.
func Current(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(Identity); ok {
			return identity
		}
	}
	return Identity{Role: Anonymous}
}

// Require guards a route with a minimum role. Anyone below it, including
// authenticated non-staff on staff routes, is sent to the login page with
// the requested path in next.
func Require(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Allows(Current(c), role) {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginURL builds /auth/login/?next=<next>. Slashes stay readable.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return LoginPath + "?next=" + escaped
}

// SafeNext only accepts local absolute paths as redirect targets.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(SessionKey, user.ID)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

func sessionUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id > 0
	default:
		return 0, false
	}
}
