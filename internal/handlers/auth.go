package handlers

import (
	"errors"
	"net/http"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db           *gorm.DB
	tokenService *services.TokenService
}

func NewAuthHandler(db *gorm.DB, tokenService *services.TokenService) *AuthHandler {
	return &AuthHandler{
		db:           db,
		tokenService: tokenService,
	}
}

// authResponse is the user document with the issued token alongside.
type authResponse struct {
	*models.User
	Token string `json:"token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=5"`
		FullName  string `json:"fullName" binding:"required,min=3"`
		AvatarURL string `json:"avatarUrl" binding:"omitempty,url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// 이메일 중복 체크
	var existing models.User
	err := h.db.WithContext(c).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		respondError(c, http.StatusConflict, "User with this email already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error.Printf("register lookup: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error.Printf("비밀번호 암호화 실패: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	user := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		AvatarURL:    req.AvatarURL,
	}
	if err := h.db.WithContext(c).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusConflict, "User with this email already exists")
			return
		}
		logger.Error.Printf("사용자 생성 실패: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	h.respondWithToken(c, &user, "Failed to register")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=5"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var user models.User
	if err := h.db.WithContext(c).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "User has not found")
			return
		}
		logger.Error.Printf("login lookup: %v", err)
		respondError(c, http.StatusInternalServerError, "Failed to auth")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(c, http.StatusBadRequest, "Login or password is wrong")
		return
	}

	h.respondWithToken(c, &user, "Failed to auth")
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	var user models.User
	if err := h.db.WithContext(c).First(&user, currentUserID(c)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "User has not found")
			return
		}
		logger.Error.Printf("get me: %v", err)
		respondError(c, http.StatusInternalServerError, "No access")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User, failure string) {
	token, err := h.tokenService.GenerateToken(user.ID)
	if err != nil {
		logger.Error.Printf("토큰 생성 실패: %v", err)
		respondError(c, http.StatusInternalServerError, failure)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}
