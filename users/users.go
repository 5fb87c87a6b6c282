package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"privateblog/access"
	"privateblog/common"
	"privateblog/content"
)

// passwordCost is lowered by tests.
var passwordCost = 14

type UsersModule struct {
	store  *content.Store
	logger *zap.SugaredLogger
}

type loginForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"-" binding:"required"`
	Next     string `form:"next" json:"next"`
}

type signupForm struct {
	Username        string `form:"username" json:"username" binding:"required,max=150"`
	FirstName       string `form:"first_name" json:"first_name" binding:"max=150"`
	LastName        string `form:"last_name" json:"last_name" binding:"max=150"`
	Email           string `form:"email" json:"email" binding:"omitempty,email,max=254"`
	Password        string `form:"password1" json:"-" binding:"required,min=8"`
	PasswordConfirm string `form:"password2" json:"-" binding:"required,eqfield=Password"`
}

type profileForm struct {
	FirstName string `form:"first_name" json:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" json:"last_name" binding:"max=150"`
	Email     string `form:"email" json:"email" binding:"omitempty,email,max=254"`
}

func NewUsersModule(store *content.Store, logger *zap.SugaredLogger) *UsersModule {
	return &UsersModule{store: store, logger: logger}
}

func (u *UsersModule) RegisterRoutes(router *gin.Engine) {
	auth := router.Group("/auth")
	{
		auth.GET("/login/", u.loginPage)
		auth.POST("/login/", u.loginPost)
		auth.GET("/signup/", u.signupPage)
		auth.POST("/signup/", u.signupPost)
		auth.GET("/logout/", u.logout)
		auth.POST("/logout/", u.logout)

		member := auth.Group("/", access.Require(access.Member))
		member.GET("/user-update/", u.profilePage)
		member.POST("/user-update/", u.profilePost)
		member.POST("/delete/", u.deleteAccount)
	}
}

func (u *UsersModule) loginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"next": c.Query("next")})
}

func (u *UsersModule) loginPost(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		common.Invalid(c, err, gin.H{"form": form})
		return
	}
	if form.Next == "" {
		form.Next = c.Query("next")
	}

	user, err := u.store.UserByUsername(form.Username)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		common.ServerError(c, u.logger, err)
		return
	}
	if err != nil || !checkPasswordHash(form.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"form":  form,
			"error": "Please enter a correct username and password.",
		})
		return
	}

	if err := access.Login(c, user); err != nil {
		common.ServerError(c, u.logger, err)
		return
	}
	c.Redirect(http.StatusFound, access.SafeNext(form.Next))
}

func (u *UsersModule) signupPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"form": signupForm{}})
}

func (u *UsersModule) signupPost(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		common.Invalid(c, err, gin.H{"form": form})
		return
	}

	hash, err := hashPassword(form.Password)
	if err != nil {
		common.ServerError(c, u.logger, err)
		return
	}

	user, err := u.store.CreateUser(content.UserInput{
		Username:     form.Username,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, content.ErrUsernameTaken) {
		common.Invalid(c, &common.FieldError{Field: "username", Message: "a user with that username already exists"}, gin.H{"form": form})
		return
	}
	if err != nil {
		common.ServerError(c, u.logger, err)
		return
	}

	u.logger.Infow("User signed up", "user_id", user.ID)
	c.Redirect(http.StatusFound, access.LoginPath)
}

func (u *UsersModule) logout(c *gin.Context) {
	if err := access.Logout(c); err != nil {
		common.ServerError(c, u.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (u *UsersModule) profilePage(c *gin.Context) {
	user := access.Current(c).User
	c.JSON(http.StatusOK, gin.H{"form": profileForm{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}})
}

func (u *UsersModule) profilePost(c *gin.Context) {
	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		common.Invalid(c, err, gin.H{"form": form})
		return
	}

	if _, err := u.store.UpdateProfile(access.Current(c).UserID(), form.FirstName, form.LastName, form.Email); err != nil {
		common.ServerError(c, u.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/private-cabinet/")
}

func (u *UsersModule) deleteAccount(c *gin.Context) {
	id := access.Current(c).UserID()
	if err := u.store.DeleteUser(id); err != nil {
		common.ServerError(c, u.logger, err)
		return
	}
	u.logger.Infow("User deleted", "user_id", id)

	if err := access.Logout(c); err != nil {
		common.ServerError(c, u.logger, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
