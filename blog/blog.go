package blog

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"privateblog/access"
	"privateblog/cache"
	"privateblog/common"
	"privateblog/content"
	"privateblog/media"
	"privateblog/models"
)

type BlogModule struct {
	store  *content.Store
	pages  *cache.PageCache
	logger *zap.SugaredLogger
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // posts are written by staff only
	),
)

type commentForm struct {
	CommentText string `form:"comment_text" json:"comment_text" binding:"required,max=450"`
}

type messageForm struct {
	MessageText string `form:"message_text" json:"message_text" binding:"required,max=450"`
}

// postView is a single post as the post page shows it.
type postView struct {
	content.Card
	TextHTML string `json:"text_html"`
	ImageSrc string `json:"image_url,omitempty"`
	IsLiked  bool   `json:"is_liked"`
}

// NewBlogModule wires the public and member pages. pages may be nil to
// serve the index uncached.
func NewBlogModule(store *content.Store, pages *cache.PageCache, logger *zap.SugaredLogger) *BlogModule {
	return &BlogModule{store: store, pages: pages, logger: logger}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	if b.pages != nil {
		router.GET("/", b.pages.Middleware(), b.index)
	} else {
		router.GET("/", b.index)
	}
	router.GET("/about/", b.about)

	member := router.Group("/", access.Require(access.Member))
	{
		member.GET("/favourite/", b.favourite)
		member.GET("/my-comments/", b.myComments)
		member.GET("/private-cabinet/", b.privateCabinet)
		member.GET("/messages/", b.messages)
		member.POST("/messages/", b.addMessage)
		member.GET("/messages/add_message/", redirectTo("/messages/"))
		member.POST("/messages/add_message/", b.addMessage)
	}

	router.GET("/:post_id/", b.post)
	router.GET("/:post_id/comments/", b.comments)
	router.POST("/:post_id/comments/", access.Require(access.Member), b.addComment)
	router.GET("/:post_id/comments/add_comment/", access.Require(access.Member), b.commentsRedirect)
	router.POST("/:post_id/comments/add_comment/", access.Require(access.Member), b.addComment)
	router.GET("/:post_id/like/", access.Require(access.Member), b.like)
}

func redirectTo(location string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, location)
	}
}

func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// fail answers a store error: 404 for missing targets, 500 otherwise.
func (b *BlogModule) fail(c *gin.Context, err error) {
	if errors.Is(err, content.ErrNotFound) {
		common.NotFound(c)
		return
	}
	common.ServerError(c, b.logger, err)
}

func (b *BlogModule) index(c *gin.Context) {
	page, err := b.store.IndexPage(c.Query("page"))
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

func (b *BlogModule) about(c *gin.Context) {
	also, err := b.store.AlsoList(0)
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": "About", "also_list": also})
}

func (b *BlogModule) loadPostView(c *gin.Context) (*postView, bool) {
	id, ok := postID(c)
	if !ok {
		common.NotFound(c)
		return nil, false
	}
	post, err := b.store.GetPost(id)
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	cards, err := b.store.Cards([]models.Post{*post})
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	liked, err := b.store.IsLiked(post.ID, access.Current(c).UserID())
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	return &postView{
		Card:     cards[0],
		TextHTML: renderMarkdown(post.Text),
		ImageSrc: post.ImageURL(media.URLPrefix),
		IsLiked:  liked,
	}, true
}

func (b *BlogModule) post(c *gin.Context) {
	view, ok := b.loadPostView(c)
	if !ok {
		return
	}
	also, err := b.store.AlsoList(view.ID)
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": view, "also_list": also})
}

func (b *BlogModule) commentsPage(c *gin.Context) (gin.H, bool) {
	view, ok := b.loadPostView(c)
	if !ok {
		return nil, false
	}
	page, err := b.store.PostComments(view.ID, c.Query("page"))
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	also, err := b.store.AlsoList(view.ID)
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	return gin.H{
		"post":        view,
		"page":        page,
		"also_list":   also,
		"can_comment": access.CanComment(access.Current(c)),
	}, true
}

func (b *BlogModule) comments(c *gin.Context) {
	data, ok := b.commentsPage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, data)
}

func (b *BlogModule) commentsRedirect(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		common.NotFound(c)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%d/comments/", id))
}

func (b *BlogModule) addComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		common.NotFound(c)
		return
	}

	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		data, ok := b.commentsPage(c)
		if !ok {
			return
		}
		data["form"] = form
		common.Invalid(c, err, data)
		return
	}

	if _, err := b.store.AddComment(id, access.Current(c).UserID(), form.CommentText); err != nil {
		b.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%d/comments/", id))
}

func (b *BlogModule) like(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		common.NotFound(c)
		return
	}
	if _, err := b.store.ToggleLike(id, access.Current(c).UserID()); err != nil {
		b.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%d/", id))
}

func (b *BlogModule) favourite(c *gin.Context) {
	userID := access.Current(c).UserID()
	page, err := b.store.FavouritePosts(userID, c.Query("page"))
	if err != nil {
		b.fail(c, err)
		return
	}
	also, err := b.store.NotLikedPosts(userID, content.AlsoListSize)
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "also_list": also})
}

func (b *BlogModule) myComments(c *gin.Context) {
	page, err := b.store.MyComments(access.Current(c).UserID(), c.Query("page"))
	if err != nil {
		b.fail(c, err)
		return
	}
	also, err := b.store.AlsoList(0)
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "also_list": also})
}

func (b *BlogModule) messagesPage(c *gin.Context) (gin.H, bool) {
	page, err := b.store.VisitorMessages(access.Current(c).UserID(), c.Query("page"))
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	also, err := b.store.AlsoList(0)
	if err != nil {
		b.fail(c, err)
		return nil, false
	}
	return gin.H{"page": page, "also_list": also, "other_side": models.FromAuthor}, true
}

func (b *BlogModule) messages(c *gin.Context) {
	data, ok := b.messagesPage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, data)
}

func (b *BlogModule) addMessage(c *gin.Context) {
	var form messageForm
	if err := c.ShouldBind(&form); err != nil {
		data, ok := b.messagesPage(c)
		if !ok {
			return
		}
		data["form"] = form
		common.Invalid(c, err, data)
		return
	}

	if _, err := b.store.SendToAuthor(access.Current(c).UserID(), form.MessageText); err != nil {
		b.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/messages/")
}

func (b *BlogModule) privateCabinet(c *gin.Context) {
	identity := access.Current(c)
	also, err := b.store.AlsoList(0)
	if err != nil {
		b.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      identity.User,
		"role":      identity.Role.String(),
		"also_list": also,
	})
}

func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		// keep the page readable even if rendering fails
		return text
	}
	return buf.String()
}
