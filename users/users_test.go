package users

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"privateblog/access"
	"privateblog/content"
	"privateblog/models"
	"privateblog/testkit"
)

func init() {
	passwordCost = bcrypt.MinCost
}

type setup struct {
	db     *gorm.DB
	store  *content.Store
	router *gin.Engine
}

func setupUsers(t *testing.T) *setup {
	t.Helper()
	db := testkit.OpenDB(t)
	store := content.NewStore(db, 10)

	router := testkit.NewRouter(db)
	NewUsersModule(store, zap.NewNop().Sugar()).RegisterRoutes(router)
	router.GET("/whoami/", func(c *gin.Context) {
		c.String(http.StatusOK, access.Current(c).Role.String())
	})

	return &setup{db: db, store: store, router: router}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := hashPassword(password)
	require.NoError(t, err)
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, checkPasswordHash("s3cret-pass", hash))
	assert.False(t, checkPasswordHash("wrong", hash))
}

func TestLogin_RedirectsToNext(t *testing.T) {
	s := setupUsers(t)
	createTestUser(t, s.db, "reader", "correct-horse")

	form := url.Values{"username": {"reader"}, "password": {"correct-horse"}, "next": {"/favourite/"}}
	w := testkit.Do(s.router, http.MethodPost, "/auth/login/", form, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/favourite/", w.Header().Get("Location"))

	w = testkit.Do(s.router, http.MethodGet, "/whoami/", nil, w.Result().Cookies())
	assert.Equal(t, "member", w.Body.String())
}

func TestLogin_NextFromQuery(t *testing.T) {
	s := setupUsers(t)
	createTestUser(t, s.db, "reader", "correct-horse")

	form := url.Values{"username": {"reader"}, "password": {"correct-horse"}}
	w := testkit.Do(s.router, http.MethodPost, "/auth/login/?next=/my-comments/", form, nil)

	assert.Equal(t, "/my-comments/", w.Header().Get("Location"))
}

func TestLogin_RejectsForeignNext(t *testing.T) {
	s := setupUsers(t)
	createTestUser(t, s.db, "reader", "correct-horse")

	form := url.Values{"username": {"reader"}, "password": {"correct-horse"}, "next": {"https://evil.example.com/"}}
	w := testkit.Do(s.router, http.MethodPost, "/auth/login/", form, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogin_BadCredentials(t *testing.T) {
	s := setupUsers(t)
	createTestUser(t, s.db, "reader", "correct-horse")

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "reader", "battery-staple"},
		{"unknown user", "ghost", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"username": {tt.username}, "password": {tt.password}}
			w := testkit.Do(s.router, http.MethodPost, "/auth/login/", form, nil)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")
			assert.NotContains(t, w.Body.String(), tt.password)
		})
	}

	w := testkit.Do(s.router, http.MethodPost, "/auth/login/", url.Values{"username": {"reader"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignup(t *testing.T) {
	s := setupUsers(t)

	form := url.Values{
		"username":   {"newbie"},
		"first_name": {"New"},
		"last_name":  {"Bie"},
		"email":      {"newbie@example.com"},
		"password1":  {"long-enough-pass"},
		"password2":  {"long-enough-pass"},
	}
	w := testkit.Do(s.router, http.MethodPost, "/auth/signup/", form, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/", w.Header().Get("Location"))

	user, err := s.store.UserByUsername("newbie")
	require.NoError(t, err)
	assert.False(t, user.IsStaff)
	assert.True(t, checkPasswordHash("long-enough-pass", user.PasswordHash))

	w = testkit.Do(s.router, http.MethodPost, "/auth/signup/", form, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"a user with that username already exists"`)
}

func TestSignup_EmailOptional(t *testing.T) {
	s := setupUsers(t)

	form := url.Values{
		"username":  {"quiet"},
		"password1": {"long-enough-pass"},
		"password2": {"long-enough-pass"},
	}
	w := testkit.Do(s.router, http.MethodPost, "/auth/signup/", form, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	user, err := s.store.UserByUsername("quiet")
	require.NoError(t, err)
	assert.Empty(t, user.Email)
}

func TestSignup_Invalid(t *testing.T) {
	s := setupUsers(t)

	tests := []struct {
		name  string
		field string
		form  url.Values
	}{
		{"mismatched passwords", "password2", url.Values{
			"username": {"a"}, "email": {"a@example.com"}, "password1": {"long-enough-1"}, "password2": {"long-enough-2"},
		}},
		{"short password", "password1", url.Values{
			"username": {"a"}, "email": {"a@example.com"}, "password1": {"short"}, "password2": {"short"},
		}},
		{"bad email", "email", url.Values{
			"username": {"a"}, "email": {"not-an-email"}, "password1": {"long-enough-1"}, "password2": {"long-enough-1"},
		}},
		{"missing username", "username", url.Values{
			"email": {"a@example.com"}, "password1": {"long-enough-1"}, "password2": {"long-enough-1"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testkit.Do(s.router, http.MethodPost, "/auth/signup/", tt.form, nil)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var body struct {
				Errors map[string]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Errors, tt.field)
		})
	}

	var n int64
	s.db.Model(&models.User{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestLogout(t *testing.T) {
	s := setupUsers(t)
	user := createTestUser(t, s.db, "reader", "correct-horse")
	cookies := testkit.Login(t, s.router, user)

	w := testkit.Do(s.router, http.MethodGet, "/auth/logout/", nil, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	w = testkit.Do(s.router, http.MethodGet, "/whoami/", nil, w.Result().Cookies())
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestUserUpdate(t *testing.T) {
	s := setupUsers(t)
	user := createTestUser(t, s.db, "reader", "correct-horse")

	w := testkit.Do(s.router, http.MethodGet, "/auth/user-update/", nil, nil)
	assert.Equal(t, "/auth/login/?next=/auth/user-update/", w.Header().Get("Location"))

	cookies := testkit.Login(t, s.router, user)
	w = testkit.Do(s.router, http.MethodGet, "/auth/user-update/", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reader@example.com")

	form := url.Values{"first_name": {"Ann"}, "last_name": {"Reader"}, "email": {"ann@example.com"}}
	w = testkit.Do(s.router, http.MethodPost, "/auth/user-update/", form, cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/private-cabinet/", w.Header().Get("Location"))

	updated, err := s.store.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.FirstName)
	assert.Equal(t, "ann@example.com", updated.Email)

	w = testkit.Do(s.router, http.MethodPost, "/auth/user-update/", url.Values{"email": {"nope"}}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAccount(t *testing.T) {
	s := setupUsers(t)
	user := createTestUser(t, s.db, "reader", "correct-horse")
	post := testkit.CreatePost(t, s.db, "Post")
	_, err := s.store.AddComment(post.ID, user.ID, "bye")
	require.NoError(t, err)
	_, err = s.store.SendToAuthor(user.ID, "bye author")
	require.NoError(t, err)
	cookies := testkit.Login(t, s.router, user)

	w := testkit.Do(s.router, http.MethodPost, "/auth/delete/", url.Values{}, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	_, err = s.store.GetUser(user.ID)
	assert.ErrorIs(t, err, content.ErrNotFound)
	var n int64
	s.db.Model(&models.Message{}).Count(&n)
	assert.Equal(t, int64(0), n)
	s.db.Model(&models.Comment{}).Count(&n)
	assert.Equal(t, int64(0), n)
}
