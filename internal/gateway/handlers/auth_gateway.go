package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"navo-system/internal/database/models"
	"navo-system/internal/utils"
)

type AuthHTTPHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewAuthHTTPHandler(db *gorm.DB, tokenTTL time.Duration) *AuthHTTPHandler {
	return &AuthHTTPHandler{db: db, tokenTTL: tokenTTL}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Email and password are required"))
		return
	}

	var admin models.Admin
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Internal error"))
		return
	}
	if !admin.IsActive {
		c.JSON(http.StatusForbidden, errorResponse("Account is disabled"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}

	token, exp, err := utils.GenerateToken(admin.ID, admin.Email, admin.FullName, admin.Role, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Internal error"))
		return
	}

	now := time.Now()
	admin.LastLogin = &now
	if err := h.db.WithContext(c.Request.Context()).Model(&admin).Update("last_login", now).Error; err != nil {
		log.Printf("last_login update failed for admin %d: %v", admin.ID, err)
	}

	c.JSON(http.StatusOK, successResponse("Logged in", gin.H{
		"token":      token,
		"expires_at": exp,
		"admin": gin.H{
			"id":        admin.ID,
			"email":     admin.Email,
			"full_name": admin.FullName,
			"role":      admin.Role,
		},
	}))
}
