package dto

import "github.com/lumeo-studio/site-auth/app/entity"

type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresIn int64
}

type UploadURLResult struct {
	URL       string
	Method    string
	Key       string
	ExpiresIn int64
}
