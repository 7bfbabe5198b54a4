package services

import "errors"

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrForbidden       = errors.New("forbidden")
	ErrOwnerMismatch   = errors.New("user is not the owner of the post")
	ErrDuplicateText   = errors.New("post text is not unique")
	ErrFileInUse       = errors.New("file is still in use")
)
