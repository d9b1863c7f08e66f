package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/internal/app/model"
	"github.com/nearify/nearify-backend/internal/app/service"
	apperrors "github.com/nearify/nearify-backend/internal/errors"
	"github.com/nearify/nearify-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	// Identifier is the email address or the username.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func userPayload(user *model.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the registration details")
		return
	}

	user, tokens, err := ctrl.authService.Register(service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email is already registered")
		case errors.Is(err, service.ErrUsernameTaken):
			apperrors.Conflict(c, apperrors.AuthUsernameExists, "This username is already taken")
		default:
			log.Error("Registration failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		}
		return
	}

	log.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	c.JSON(http.StatusCreated, gin.H{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

// Login handles user login with email or username
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide your login details")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Login failed", map[string]interface{}{
				"identifier": req.Identifier,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Incorrect email/username or password")
			return
		}
		log.Error("Login failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	token := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 {
			token = parts[1]
		}
	}

	if err := ctrl.authService.Logout(c.Request.Context(), token); err != nil {
		log.Error("Logout failed", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetMe returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUser(userID)
	if err != nil {
		log.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userPayload(user),
	})
}
