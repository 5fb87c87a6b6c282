// Package testkit holds the fixtures shared by the HTTP module tests: an
// isolated in-memory database, a router with sessions and identity wired,
// and a way to log a user in without going through the password form.
package testkit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"privateblog/access"
	"privateblog/models"
)

const loginPath = "/test/login/"

// OpenDB returns a freshly migrated database private to the calling test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string, staff bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		FirstName:    "First " + username,
		LastName:     "Last " + username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
		IsStaff:      staff,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreatePost(t testing.TB, db *gorm.DB, title string) *models.Post {
	t.Helper()

	post := &models.Post{
		Title:     title,
		Subheader: "Subheader of " + title,
		Text:      "Text of " + title,
		PubDate:   datatypes.Date(time.Now()),
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// NewRouter is a test-mode engine with cookie sessions, identity resolution
// and the test login route installed.
func NewRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	router.Use(access.Identify(db))

	router.GET(loginPath+":id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		session := sessions.Default(c)
		session.Set(access.SessionKey, uint(id))
		session.Save()
		c.String(http.StatusOK, "ok")
	})

	return router
}

// Login returns the session cookies of user.
func Login(t testing.TB, router *gin.Engine, user *models.User) []*http.Cookie {
	t.Helper()

	w := Do(router, http.MethodGet, fmt.Sprintf("%s%d", loginPath, user.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

// Do performs a request. A non-nil form is sent url-encoded.
func Do(router *gin.Engine, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
