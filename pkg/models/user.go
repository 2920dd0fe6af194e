package models

import (
	"strings"
)

// MinPasswordLength is the weakest password accepted at registration.
const MinPasswordLength = 6

type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Registration is the payload of POST /users/register
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Validate applies the local checks performed before a registration request is sent.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return NewValidationError("username", r.Username, "is required")
	}
	if !strings.Contains(r.Email, "@") {
		return NewValidationError("email", r.Email, "must be a valid email address")
	}
	if len(r.Password) < MinPasswordLength {
		return NewValidationError("password", "***", "must be at least 6 characters")
	}
	if r.Password != r.ConfirmPassword {
		return NewValidationError("confirmPassword", "***", "passwords do not match")
	}
	return nil
}

// Credentials is the payload of POST /users/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return NewValidationError("username", c.Username, "is required")
	}
	if c.Password == "" {
		return NewValidationError("password", "", "is required")
	}
	return nil
}

// LoginResponse is returned by POST /users/login. Older servers send accessToken.
type LoginResponse struct {
	Message     string `json:"message,omitempty"`
	Token       string `json:"token,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
	UserID      ID     `json:"userId,omitempty"`
	Username    string `json:"username,omitempty"`
}

// BearerToken returns whichever token field the server populated.
func (r LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}
