package dto

type User struct {
	ID          ID     `json:"id" validate:"required"`
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	IsActive    Flag   `json:"is_active"`
	IsSuperuser Flag   `json:"is_superuser"`
}

func (u *User) Validate() error {
	return Validate(u)
}

// --- Auth DTOs ---

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type RegisterResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}
