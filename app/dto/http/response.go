package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type LoginResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
	ExpiresIn int64  `json:"expires_in"`
}

type VerifyResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type VideoTokenResponse struct {
	Token     string `json:"token"`
	Room      string `json:"room"`
	ExpiresIn int64  `json:"expires_in"`
}

type UploadURLResponse struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

type DisabledAccountResponse struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Reason     string    `json:"reason"`
	DisabledBy string    `json:"disabled_by"`
	DisabledAt time.Time `json:"disabled_at"`
}

type DisabledAccountsResponse struct {
	Accounts []DisabledAccountResponse `json:"accounts"`
}
