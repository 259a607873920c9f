package models

// User is a person exercises are logged against.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CreateUserRequest is the body for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
}
