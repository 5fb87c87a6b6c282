package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"privateblog/access"
	"privateblog/common"
	"privateblog/content"
	"privateblog/media"
	"privateblog/models"
	"privateblog/pagination"
)

// AdminModule is the staff area: post management and the reply inbox.
type AdminModule struct {
	store  *content.Store
	media  *media.Storage
	logger *zap.SugaredLogger
}

type postForm struct {
	Title     string `form:"title" json:"title" binding:"required,max=50"`
	Subheader string `form:"subheader" json:"subheader" binding:"required,max=100"`
	Text      string `form:"text" json:"text" binding:"required"`
}

type replyForm struct {
	MessageText string `form:"message_text" json:"message_text" binding:"required,max=450"`
}

func NewAdminModule(store *content.Store, storage *media.Storage, logger *zap.SugaredLogger) *AdminModule {
	return &AdminModule{
		store:  store,
		media:  storage,
		logger: logger,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	staff := router.Group("/", access.Require(access.Staff))
	{
		staff.GET("/post-management/", a.listPosts)
		staff.GET("/new/", a.newPost)
		staff.POST("/new/", a.savePost)
		staff.GET("/post-management/:id/update/", a.editPost)
		staff.POST("/post-management/:id/update/", a.updatePost)
		staff.GET("/post-management/:id/delete/", a.confirmDelete)
		staff.POST("/post-management/:id/delete/", a.deletePost)

		staff.GET("/message-reply/", a.messageReply)
		staff.GET("/message-reply/:id/", a.messageReply)
		staff.GET("/message-reply/:id/add_reply/", a.replyRedirect)
		staff.POST("/message-reply/:id/add_reply/", a.addReply)
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (a *AdminModule) fail(c *gin.Context, err error) {
	if errors.Is(err, content.ErrNotFound) {
		common.NotFound(c)
		return
	}
	common.ServerError(c, a.logger, err)
}

func (a *AdminModule) listPosts(c *gin.Context) {
	page, err := a.store.IndexPage(c.Query("page"))
	if err != nil {
		a.fail(c, err)
		return
	}
	also, err := a.store.AlsoList(0)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "also_list": also})
}

func (a *AdminModule) newPost(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"form": postForm{}, "edit": false})
}

// bindPost reads the post form and stores an uploaded image, if any. On
// failure the form is redisplayed and ok is false.
func (a *AdminModule) bindPost(c *gin.Context, edit bool) (content.PostInput, bool) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		common.Invalid(c, err, gin.H{"form": form, "edit": edit})
		return content.PostInput{}, false
	}

	in := content.PostInput{Title: form.Title, Subheader: form.Subheader, Text: form.Text}

	file, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, true
	case err != nil:
		common.Invalid(c, err, gin.H{"form": form, "edit": edit})
		return content.PostInput{}, false
	}

	rel, err := a.media.Save(c, file)
	if errors.Is(err, media.ErrUnsupportedImage) {
		common.Invalid(c, &common.FieldError{Field: "image", Message: "upload a valid image"}, gin.H{"form": form, "edit": edit})
		return content.PostInput{}, false
	}
	if err != nil {
		a.fail(c, err)
		return content.PostInput{}, false
	}
	in.Image = rel
	return in, true
}

// discardImage removes an upload whose post was never written.
func (a *AdminModule) discardImage(rel string) {
	if err := a.media.Remove(rel); err != nil {
		a.logger.Warnw("Failed to remove orphaned image", "image", rel, "error", err)
	}
}

func (a *AdminModule) savePost(c *gin.Context) {
	in, ok := a.bindPost(c, false)
	if !ok {
		return
	}
	post, err := a.store.CreatePost(in)
	if err != nil {
		a.discardImage(in.Image)
		a.fail(c, err)
		return
	}
	a.logger.Infow("Post created", "post_id", post.ID, "staff_id", access.Current(c).UserID())
	c.Redirect(http.StatusFound, "/post-management/")
}

func (a *AdminModule) loadPost(c *gin.Context) (*models.Post, bool) {
	id, ok := paramID(c)
	if !ok {
		common.NotFound(c)
		return nil, false
	}
	post, err := a.store.GetPost(id)
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	return post, true
}

func (a *AdminModule) editPost(c *gin.Context) {
	post, ok := a.loadPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"form": postForm{Title: post.Title, Subheader: post.Subheader, Text: post.Text},
		"post": post,
		"edit": true,
	})
}

func (a *AdminModule) updatePost(c *gin.Context) {
	post, ok := a.loadPost(c)
	if !ok {
		return
	}
	in, ok := a.bindPost(c, true)
	if !ok {
		return
	}
	if _, err := a.store.UpdatePost(post.ID, in); err != nil {
		a.discardImage(in.Image)
		a.fail(c, err)
		return
	}
	a.logger.Infow("Post updated", "post_id", post.ID, "staff_id", access.Current(c).UserID())
	c.Redirect(http.StatusFound, "/post-management/")
}

func (a *AdminModule) confirmDelete(c *gin.Context) {
	post, ok := a.loadPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (a *AdminModule) deletePost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		common.NotFound(c)
		return
	}
	if err := a.store.DeletePost(id); err != nil {
		a.fail(c, err)
		return
	}
	a.logger.Infow("Post deleted", "post_id", id, "staff_id", access.Current(c).UserID())
	c.Redirect(http.StatusFound, "/post-management/")
}

// messageReply shows everyone who wrote to the author and, when a user is
// chosen, their thread.
func (a *AdminModule) messageReply(c *gin.Context) {
	interlocutors, err := a.store.Interlocutors()
	if err != nil {
		a.fail(c, err)
		return
	}
	also, err := a.store.AlsoList(0)
	if err != nil {
		a.fail(c, err)
		return
	}

	data := gin.H{
		"interlocutors": interlocutors,
		"also_list":     also,
		"other_side":    models.ToAuthor,
	}

	if c.Param("id") == "" {
		data["page"] = pagination.New[models.Message](nil, 1, 0, a.store.PageSize())
		c.JSON(http.StatusOK, data)
		return
	}

	id, ok := paramID(c)
	if !ok {
		common.NotFound(c)
		return
	}
	chosen, page, err := a.store.Thread(id, c.Query("page"))
	if err != nil {
		a.fail(c, err)
		return
	}
	data["chosen_user"] = chosen
	data["page"] = page
	c.JSON(http.StatusOK, data)
}

func (a *AdminModule) replyRedirect(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		common.NotFound(c)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/message-reply/%d/", id))
}

func (a *AdminModule) addReply(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		common.NotFound(c)
		return
	}

	var form replyForm
	if err := c.ShouldBind(&form); err != nil {
		if _, err := a.store.GetUser(id); err != nil {
			a.fail(c, err)
			return
		}
		common.Invalid(c, err, gin.H{"form": form})
		return
	}

	if _, err := a.store.ReplyFromAuthor(id, form.MessageText); err != nil {
		a.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/message-reply/%d/", id))
}
