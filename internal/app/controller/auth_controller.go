package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
	resolver    *middleware.IdentityResolver
}

// NewAuthController takes the identity resolver so a merged session cookie
// can be expired; resolver may be nil.
func NewAuthController(authService service.AuthService, resolver *middleware.IdentityResolver) *AuthController {
	return &AuthController{
		authService: authService,
		resolver:    resolver,
	}
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

func userResponse(user *model.User) gin.H {
	body := gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"role":       user.Role,
	}
	if user.Profile != nil {
		body["phone"] = user.Profile.Phone
		body["address"] = user.Profile.Address
	}
	return body
}

// Register creates an account. A live anonymous session presented with the
// request has its cart and favorites moved into the new account.
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sessionID := middleware.GetExistingSession(c)
	result, err := ctrl.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Address:         req.Address,
	}, sessionID)
	if err != nil {
		respondServiceError(c, err, "register user")
		return
	}

	if sessionID != nil && ctrl.resolver != nil {
		ctrl.resolver.ClearSession(c)
	}

	log.Info("User registered", map[string]interface{}{
		"user_id":        result.User.ID,
		"merged_session": sessionID != nil,
	})

	body := gin.H{
		"message": "User registered successfully",
		"user":    userResponse(result.User),
		"tokens":  result.Tokens,
	}
	if result.Merge != nil {
		body["merge"] = result.Merge
	}
	c.JSON(http.StatusCreated, body)
}

// Login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err, "login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    userResponse(result.User),
		"tokens":  result.Tokens,
	})
}

// GetMe returns current user information
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetProfile(userID)
	if err != nil {
		respondServiceError(c, err, "fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse(user),
	})
}

// UpdateMe changes only the fields present in the body
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondServiceError(c, err, "update profile")
		return
	}

	log.Info("Profile updated", map[string]interface{}{
		"user_id": user.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"user": userResponse(user),
	})
}
