package auth

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Password string `json:"password" validate:"required"`
}

// Status reports whether the current session is an admin session.
type Status struct {
	Admin bool `json:"admin"`
}
