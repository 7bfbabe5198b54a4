package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No access"})
			return
		}

		// "Bearer " 제거
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No access"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// IdentifyModerator marks the request with isModerator when the
// authenticated user's email is in emails. It must run after AuthMiddleware.
func IdentifyModerator(db *gorm.DB, emails []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		allowed[strings.ToLower(e)] = struct{}{}
	}

	return func(c *gin.Context) {
		isModerator := false
		if len(allowed) > 0 {
			var user models.User
			err := db.WithContext(c).Select("id", "email").First(&user, c.GetUint("userID")).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Error.Printf("moderator lookup: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "No access"})
				return
			}
			_, isModerator = allowed[strings.ToLower(user.Email)]
		}
		c.Set("isModerator", isModerator)
		c.Next()
	}
}

// RequireModerator rejects requests not marked by IdentifyModerator.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isModerator") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "No access"})
			return
		}
		c.Next()
	}
}
