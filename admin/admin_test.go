package admin

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"privateblog/content"
	"privateblog/media"
	"privateblog/models"
	"privateblog/testkit"
)

type setup struct {
	db     *gorm.DB
	store  *content.Store
	media  *media.Storage
	router *gin.Engine
	member *models.User
	staff  *models.User
}

func setupAdmin(t *testing.T) *setup {
	t.Helper()
	db := testkit.OpenDB(t)
	store := content.NewStore(db, 10)
	storage := media.NewStorage(t.TempDir())

	router := testkit.NewRouter(db)
	NewAdminModule(store, storage, zap.NewNop().Sugar()).RegisterRoutes(router)

	return &setup{
		db:     db,
		store:  store,
		media:  storage,
		router: router,
		member: testkit.CreateUser(t, db, "member", false),
		staff:  testkit.CreateUser(t, db, "author", true),
	}
}

func TestStaffRoutes_Access(t *testing.T) {
	s := setupAdmin(t)
	post := testkit.CreatePost(t, s.db, "Post")
	memberCookies := testkit.Login(t, s.router, s.member)
	staffCookies := testkit.Login(t, s.router, s.staff)

	paths := []string{
		"/post-management/",
		"/new/",
		fmt.Sprintf("/post-management/%d/update/", post.ID),
		fmt.Sprintf("/post-management/%d/delete/", post.ID),
		"/message-reply/",
		fmt.Sprintf("/message-reply/%d/", s.member.ID),
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := testkit.Do(s.router, http.MethodGet, path, nil, nil)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/auth/login/?next="+path, w.Header().Get("Location"))

			w = testkit.Do(s.router, http.MethodGet, path, nil, memberCookies)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/auth/login/?next="+path, w.Header().Get("Location"))

			w = testkit.Do(s.router, http.MethodGet, path, nil, staffCookies)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestListPosts_Paginated(t *testing.T) {
	s := setupAdmin(t)
	for i := 0; i < 12; i++ {
		testkit.CreatePost(t, s.db, fmt.Sprintf("Post %d", i))
	}
	cookies := testkit.Login(t, s.router, s.staff)

	w := testkit.Do(s.router, http.MethodGet, "/post-management/?page=2", nil, cookies)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":2`)
	assert.Contains(t, w.Body.String(), `"num_pages":2`)
}

func TestSavePost(t *testing.T) {
	s := setupAdmin(t)
	cookies := testkit.Login(t, s.router, s.staff)

	form := url.Values{"title": {"Hello"}, "subheader": {"World"}, "text": {"Body"}}
	w := testkit.Do(s.router, http.MethodPost, "/new/", form, cookies)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/post-management/", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, s.db.Where("title = ?", "Hello").First(&post).Error)
	assert.Equal(t, "World", post.Subheader)
	assert.Empty(t, post.Image)
	assert.False(t, time.Time(post.PubDate).IsZero())
}

func TestSavePost_Invalid(t *testing.T) {
	s := setupAdmin(t)
	cookies := testkit.Login(t, s.router, s.staff)

	form := url.Values{"title": {"This title is definitely much longer than fifty characters"}, "subheader": {""}, "text": {"Body"}}
	w := testkit.Do(s.router, http.MethodPost, "/new/", form, cookies)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"ensure this value has at most 50 characters"`)
	assert.Contains(t, w.Body.String(), `"subheader":"this field is required"`)

	var n int64
	s.db.Model(&models.Post{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

var jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

func multipartPost(t *testing.T, target, filename string, data []byte, fields map[string]string, cookies []*http.Cookie) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func TestSavePost_WithImage(t *testing.T) {
	s := setupAdmin(t)
	cookies := testkit.Login(t, s.router, s.staff)
	fields := map[string]string{"title": "Pictured", "subheader": "Sub", "text": "Body"}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartPost(t, "/new/", "photo.jpg", jpegBytes, fields, cookies))
	require.Equal(t, http.StatusFound, w.Code)

	var post models.Post
	require.NoError(t, s.db.Where("title = ?", "Pictured").First(&post).Error)
	assert.Regexp(t, `^posts/.+\.jpg$`, post.Image)
	_, err := os.Stat(filepath.Join(s.media.Root, filepath.FromSlash(post.Image)))
	assert.NoError(t, err)
	assert.Equal(t, "/media/"+post.Image, post.ImageURL(media.URLPrefix))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartPost(t, "/new/", "notes.txt", []byte("notes"), fields, cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"image":"upload a valid image"`)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartPost(t, "/new/", "fake.png", []byte("not really a png"), fields, cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"image":"upload a valid image"`)
}

func TestSavePost_StoreFailureRemovesImage(t *testing.T) {
	s := setupAdmin(t)
	cookies := testkit.Login(t, s.router, s.staff)
	require.NoError(t, s.db.Migrator().DropTable(&models.Comment{}, &models.Favourite{}, &models.Post{}))
	fields := map[string]string{"title": "Lost", "subheader": "Sub", "text": "Body"}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartPost(t, "/new/", "photo.jpg", jpegBytes, fields, cookies))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries, err := os.ReadDir(filepath.Join(s.media.Root, "posts"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdatePost(t *testing.T) {
	s := setupAdmin(t)
	post := testkit.CreatePost(t, s.db, "Original")
	cookies := testkit.Login(t, s.router, s.staff)
	target := fmt.Sprintf("/post-management/%d/update/", post.ID)

	w := testkit.Do(s.router, http.MethodGet, target, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"edit":true`)
	assert.Contains(t, w.Body.String(), `"title":"Original"`)

	form := url.Values{"title": {"Edited"}, "subheader": {"Sub"}, "text": {"New body"}}
	w = testkit.Do(s.router, http.MethodPost, target, form, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	updated, err := s.store.GetPost(post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.NotNil(t, updated.ModifyDate)

	w = testkit.Do(s.router, http.MethodPost, "/post-management/999/update/", form, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePost(t *testing.T) {
	s := setupAdmin(t)
	post := testkit.CreatePost(t, s.db, "Doomed")
	_, err := s.store.AddComment(post.ID, s.member.ID, "comment")
	require.NoError(t, err)
	_, err = s.store.ToggleLike(post.ID, s.member.ID)
	require.NoError(t, err)
	cookies := testkit.Login(t, s.router, s.staff)
	target := fmt.Sprintf("/post-management/%d/delete/", post.ID)

	w := testkit.Do(s.router, http.MethodGet, target, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Doomed")

	w = testkit.Do(s.router, http.MethodPost, target, url.Values{}, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	_, err = s.store.GetPost(post.ID)
	assert.ErrorIs(t, err, content.ErrNotFound)
	var n int64
	s.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n)
	assert.Equal(t, int64(0), n)
	s.db.Model(&models.Favourite{}).Where("post_id = ?", post.ID).Count(&n)
	assert.Equal(t, int64(0), n)

	w = testkit.Do(s.router, http.MethodPost, target, url.Values{}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessageReply_Inbox(t *testing.T) {
	s := setupAdmin(t)
	writer := testkit.CreateUser(t, s.db, "writer", false)
	_, err := s.store.SendToAuthor(writer.ID, "question")
	require.NoError(t, err)
	cookies := testkit.Login(t, s.router, s.staff)

	w := testkit.Do(s.router, http.MethodGet, "/message-reply/", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"writer"`)
	assert.NotContains(t, w.Body.String(), "question")

	w = testkit.Do(s.router, http.MethodGet, fmt.Sprintf("/message-reply/%d/", writer.ID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "question")
	assert.Contains(t, w.Body.String(), `"chosen_user"`)

	w = testkit.Do(s.router, http.MethodGet, "/message-reply/999/", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddReply_FromAuthor(t *testing.T) {
	s := setupAdmin(t)
	writer := testkit.CreateUser(t, s.db, "writer", false)
	cookies := testkit.Login(t, s.router, s.staff)
	target := fmt.Sprintf("/message-reply/%d/add_reply/", writer.ID)

	w := testkit.Do(s.router, http.MethodPost, target, url.Values{"message_text": {"answer"}}, cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/message-reply/%d/", writer.ID), w.Header().Get("Location"))

	var msg models.Message
	require.NoError(t, s.db.Where("message_text = ?", "answer").First(&msg).Error)
	assert.Equal(t, models.FromAuthor, msg.Direction)
	assert.Equal(t, writer.ID, msg.InterlocutorID)

	w = testkit.Do(s.router, http.MethodGet, target, nil, cookies)
	assert.Equal(t, http.StatusFound, w.Code)

	w = testkit.Do(s.router, http.MethodPost, target, url.Values{"message_text": {""}}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testkit.Do(s.router, http.MethodPost, "/message-reply/999/add_reply/", url.Values{"message_text": {"x"}}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddReply_MemberDenied(t *testing.T) {
	s := setupAdmin(t)
	cookies := testkit.Login(t, s.router, s.member)

	w := testkit.Do(s.router, http.MethodPost, fmt.Sprintf("/message-reply/%d/add_reply/", s.member.ID), url.Values{"message_text": {"spoof"}}, cookies)

	assert.Equal(t, http.StatusFound, w.Code)
	var n int64
	s.db.Model(&models.Message{}).Count(&n)
	assert.Equal(t, int64(0), n)
}
