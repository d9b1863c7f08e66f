package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/repository"
	"github.com/nearify/nearify-backend/internal/app/service"
	"github.com/nearify/nearify-backend/internal/db"
	"github.com/nearify/nearify-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWTCfg = config.JWTConfig{
	Secret:             "test-secret",
	AccessTokenExpiry:  15 * time.Minute,
	RefreshTokenExpiry: 7 * 24 * time.Hour,
}

func setupAuthControllerTest(t *testing.T) (*gin.Engine, service.AuthService) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	authService := service.NewAuthService(repository.NewUserRepository(testDB), testJWTCfg, false)
	ctrl := NewAuthController(authService)
	authMiddleware := middleware.NewAuthMiddleware(testJWTCfg.Secret, false)

	router := gin.New()
	router.POST("/register", ctrl.Register)
	router.POST("/login", ctrl.Login)
	router.GET("/me", authMiddleware.Authenticate(), ctrl.GetMe)

	return router, authService
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthController_Register_Success(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		Email:    "test@example.com",
		Username: "tester",
		Password: "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotNil(t, response["user"])
	assert.NotNil(t, response["tokens"])
}

func TestAuthController_Register_InvalidEmail(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		Email:    "invalid-email",
		Username: "tester",
		Password: "password123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthController_Register_DuplicateEmail(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	first := postJSON(t, router, "/register", RegisterRequest{
		Email:    "dupe@example.com",
		Username: "first",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, router, "/register", RegisterRequest{
		Email:    "dupe@example.com",
		Username: "second",
		Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "AUTH_EMAIL_EXISTS")
}

func TestAuthController_Login_WithUsername(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		Email:    "login@example.com",
		Username: "loginuser",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, router, "/login", LoginRequest{
		Identifier: "loginuser",
		Password:   "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/login", LoginRequest{
		Identifier: "loginuser",
		Password:   "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_INVALID_CREDENTIALS")
}

func TestAuthController_GetMe(t *testing.T) {
	router, _ := setupAuthControllerTest(t)

	w := postJSON(t, router, "/register", RegisterRequest{
		Email:    "me@example.com",
		Username: "meuser",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+response.Tokens.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "me@example.com")
}
