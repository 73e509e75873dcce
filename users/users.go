package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketwatch/auth"
	"marketwatch/common"
	"marketwatch/models"
	"marketwatch/uploads"
)

type UserModule struct {
	db             *gorm.DB
	auth           *auth.AuthModule
	saver          *uploads.Saver
	avatarMaxBytes int64
}

func NewUserModule(db *gorm.DB, authModule *auth.AuthModule, saver *uploads.Saver, avatarMaxBytes int64) *UserModule {
	return &UserModule{
		db:             db,
		auth:           authModule,
		saver:          saver,
		avatarMaxBytes: avatarMaxBytes,
	}
}

func (m *UserModule) RegisterRoutes(router *gin.Engine) {
	userGroup := router.Group("/users")
	userGroup.Use(m.auth.RequireAuthenticated)
	{
		userGroup.GET("/me", m.getMe)
		userGroup.PATCH("/me", m.updateMe)

		adminOnly := userGroup.Group("")
		adminOnly.Use(m.auth.RequireRole(auth.RoleAdmin))
		{
			adminOnly.GET("", m.listUsers)
			adminOnly.GET("/:id", m.getUser)
			adminOnly.PATCH("/:id", m.updateUser)
			adminOnly.DELETE("/:id", m.deleteUser)
		}
	}
}

func (m *UserModule) getMe(c *gin.Context) {
	common.Success(c, http.StatusOK, auth.CurrentUser(c))
}

// updateMe lets the caller change their own profile. Role is deliberately
// not settable here.
func (m *UserModule) updateMe(c *gin.Context) {
	user := auth.CurrentUser(c)

	if v, ok := c.GetPostForm("name"); ok {
		user.Name = v
	}
	if v, ok := c.GetPostForm("email"); ok && v != user.Email {
		var existing models.User
		if err := m.db.Where("email = ? AND id <> ?", v, user.ID).First(&existing).Error; err == nil {
			common.Fail(c, http.StatusConflict, "This email is already registered")
			return
		}
		user.Email = v
	}
	if v, ok := c.GetPostForm("password"); ok && v != "" {
		if len(v) < 8 {
			common.FailFields(c, http.StatusBadRequest, "Invalid profile data",
				map[string]string{"password": "Password must be at least 8 characters"})
			return
		}
		hash, err := auth.HashPassword(v)
		if err != nil {
			common.Error(c, "Could not update password")
			return
		}
		user.PasswordHash = hash
	}

	avatar, err := m.saver.Save(c, "avatar", "avatars", "avatar", m.avatarMaxBytes)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrTooLarge):
			common.Fail(c, http.StatusBadRequest, "Avatar exceeds the size limit")
		case errors.Is(err, uploads.ErrBadType):
			common.Fail(c, http.StatusBadRequest, "Only image files are allowed")
		default:
			common.Error(c, "Could not store the uploaded file")
		}
		return
	}
	if avatar != "" {
		user.Avatar = avatar
	}

	if err := m.db.Save(user).Error; err != nil {
		common.Error(c, "Could not update profile")
		return
	}

	common.Success(c, http.StatusOK, user)
}

func (m *UserModule) listUsers(c *gin.Context) {
	var users []models.User
	if err := m.db.Order("created_at ASC").Find(&users).Error; err != nil {
		common.Error(c, "Could not load users")
		return
	}

	common.SuccessList(c, http.StatusOK, len(users), users)
}

func (m *UserModule) getUser(c *gin.Context) {
	var user models.User
	if err := m.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No user found with that ID")
			return
		}
		common.Error(c, "Could not load user")
		return
	}

	common.Success(c, http.StatusOK, user)
}

func (m *UserModule) updateUser(c *gin.Context) {
	var user models.User
	if err := m.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "No user found with that ID")
			return
		}
		common.Error(c, "Could not load user")
		return
	}

	var req struct {
		Name *string `json:"name"`
		Role *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if *req.Role != auth.RoleUser && *req.Role != auth.RoleAdmin {
			common.FailFields(c, http.StatusBadRequest, "Invalid user data",
				map[string]string{"role": "Role must be one of: user, admin"})
			return
		}
		user.Role = *req.Role
	}

	if err := m.db.Save(&user).Error; err != nil {
		common.Error(c, "Could not update user")
		return
	}

	common.Success(c, http.StatusOK, user)
}

func (m *UserModule) deleteUser(c *gin.Context) {
	result := m.db.Where("id = ?", c.Param("id")).Delete(&models.User{})
	if result.Error != nil {
		common.Error(c, "Could not delete user")
		return
	}
	if result.RowsAffected == 0 {
		common.Fail(c, http.StatusNotFound, "No user found with that ID")
		return
	}

	common.Success(c, http.StatusOK, nil)
}
