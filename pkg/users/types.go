package users

// userRow mirrors the users table in the remote store. Never returned to
// clients directly because it carries the password hash.
type userRow struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	HashedPassword string  `json:"hashed_password"`
	FullName       string  `json:"full_name"`
	RoleID         int64   `json:"role_id"`
	IsActive       bool    `json:"is_active"`
	IsVerified     bool    `json:"is_verified"`
	Age            *int    `json:"age,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Gender         *string `json:"gender,omitempty"`
}

type roleRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type profileRow struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name,omitempty"`
	Age    *int    `json:"age,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Gender *string `json:"gender,omitempty"`
}

// User is the client-facing shape of an account. It never includes the
// password hash.
type User struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	IsActive   bool    `json:"is_active"`
	IsVerified bool    `json:"is_verified"`
	Age        *int    `json:"age,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Gender     *string `json:"gender,omitempty"`
}

// SessionUser is the compact identity embedded in a login response.
type SessionUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Role        string      `json:"role"`
	User        SessionUser `json:"user"`
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Age      *int    `json:"age,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

// UpdateInput is the admin payload for modifying an account. Nil fields
// are left unchanged.
type UpdateInput struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	RoleID   *int64  `json:"role_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

// Profile is the client-facing profile shape, annotated with the email
// from the caller's token.
type Profile struct {
	ID     int64   `json:"id"`
	Name   *string `json:"name"`
	Email  string  `json:"email"`
	Age    *int    `json:"age"`
	Phone  *string `json:"phone"`
	Gender *string `json:"gender"`
}

// ProfileUpdate is the payload for updating one's own profile. Nil fields
// are left unchanged.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Age    *int    `json:"age,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Gender *string `json:"gender,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Phone == nil && p.Gender == nil
}

func (u userRow) toUser(role string) User {
	return User{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		Age:        u.Age,
		Phone:      u.Phone,
		Gender:     u.Gender,
	}
}
