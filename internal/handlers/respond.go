package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type fieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

var validationMessages = map[string]string{
	"email":     "Format of email is wrong",
	"password":  "Password has to have at least 5 symbols",
	"fullName":  "Write your name",
	"avatarUrl": "Wrong url",
	"title":     "Write title of post",
	"text":      "Write text of post",
	"tags":      "Incorrect format of tags (specify an array)",
	"imageUrl":  "Wrong url",
	"postId":    "Specify the post",
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// respondBindError answers a failed ShouldBind* call with the offending
// fields, in request order.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request body",
			"errors":  []fieldError{{Field: "body", Msg: err.Error()}},
		})
		return
	}

	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonName(fe.Field())
		msg, ok := validationMessages[name]
		if !ok {
			msg = "Invalid value"
		}
		out = append(out, fieldError{Field: name, Msg: msg})
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"message": out[0].Msg,
		"errors":  out,
	})
}

// respondServiceError maps service sentinels onto status codes and hides
// everything else behind fallback.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Post has not found")
	case errors.Is(err, services.ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "Comment has not found")
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		respondError(c, http.StatusNotFound, "User has not found")
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "No access")
	case errors.Is(err, services.ErrOwnerMismatch):
		respondError(c, http.StatusBadRequest, "User is not the owner of the post")
	case errors.Is(err, services.ErrDuplicateText), errors.Is(err, gorm.ErrDuplicatedKey):
		respondError(c, http.StatusConflict, "This post is not unique")
	case errors.Is(err, services.ErrFileInUse):
		respondError(c, http.StatusConflict, "File is in use")
	default:
		logger.Error.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("userID")
}

// uintParam parses a positive integer path parameter. It answers 400 and
// returns false when the value is not one.
func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		respondError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func jsonName(field string) string {
	switch field {
	case "AvatarURL":
		return "avatarUrl"
	case "ImageURL":
		return "imageUrl"
	case "PostID":
		return "postId"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
