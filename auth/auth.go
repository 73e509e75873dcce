package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"marketwatch/common"
	"marketwatch/models"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// contextUserKey is where the resolved caller is attached for downstream
// handlers.
const contextUserKey = "current_user"

var errNoIdentity = errors.New("no identity in request")

type AuthModule struct {
	db     *gorm.DB
	tokens *TokenManager
}

func NewAuthModule(db *gorm.DB, tokens *TokenManager) *AuthModule {
	return &AuthModule{db: db, tokens: tokens}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", a.register)
		authGroup.POST("/login", a.login)
		authGroup.GET("/logout", a.logout)
	}
}

// EnsureAdmin seeds the administrator account from config. It is a no-op
// when the account already exists or no credentials are configured.
func (a *AuthModule) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	err := a.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         RoleAdmin,
	}
	if err := a.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("seeded admin account %s", email)
	return nil
}

// RequireAuthenticated resolves the caller identity from the request and
// aborts with 401 when none can be resolved.
func (a *AuthModule) RequireAuthenticated(c *gin.Context) {
	user, err := a.resolveUser(c)
	if err != nil {
		common.Fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
		c.Abort()
		return
	}

	c.Set(contextUserKey, user)
	c.Next()
}

// RequireRole must run after RequireAuthenticated. The match is exact:
// there is no role hierarchy.
func (a *AuthModule) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			common.Fail(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
			c.Abort()
			return
		}
		if user.Role != role {
			common.Fail(c, http.StatusForbidden, "You do not have permission to perform this action.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoadUser attaches the caller identity when the request carries one but
// never aborts. Public routes whose behavior widens for admins use it.
func (a *AuthModule) LoadUser(c *gin.Context) {
	if user, err := a.resolveUser(c); err == nil {
		c.Set(contextUserKey, user)
	}
	c.Next()
}

// CurrentUser returns the resolved caller, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// IsAdmin reports whether the resolved caller has the admin role.
func IsAdmin(c *gin.Context) bool {
	user := CurrentUser(c)
	return user != nil && user.Role == RoleAdmin
}

// resolveUser checks the Authorization header first, then the session
// cookie used by the browser admin UI.
func (a *AuthModule) resolveUser(c *gin.Context) (*models.User, error) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		userID, _, err := a.tokens.Validate(token)
		if err != nil {
			return nil, err
		}
		return a.findUser(userID)
	}

	session := sessions.Default(c)
	if userID, ok := session.Get("user_id").(string); ok && userID != "" {
		return a.findUser(userID)
	}

	return nil, errNoIdentity
}

func (a *AuthModule) findUser(id string) (*models.User, error) {
	var user models.User
	if err := a.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthModule) register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "Email is required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if len(fields) > 0 {
		common.FailFields(c, http.StatusBadRequest, "Invalid registration data", fields)
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		common.Fail(c, http.StatusConflict, "This email is already registered")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		common.Error(c, "Could not create account")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         RoleUser,
	}
	if err := a.db.Create(&user).Error; err != nil {
		common.Error(c, "Could not create account")
		return
	}

	token, err := a.tokens.Generate(user.ID, user.Role)
	if err != nil {
		common.Error(c, "Could not issue token")
		return
	}

	common.Success(c, http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

func (a *AuthModule) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	if !CheckPasswordHash(req.Password, user.PasswordHash) {
		common.Fail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := a.tokens.Generate(user.ID, user.Role)
	if err != nil {
		common.Error(c, "Could not issue token")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	common.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (a *AuthModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	common.Success(c, http.StatusOK, nil)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
