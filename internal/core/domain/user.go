package domain

import "errors"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UserFromRecord reads the string fields of a stored user record.
// Fields of any other type read as empty.
func UserFromRecord(r Record) User {
	username, _ := r["username"].(string)
	password, _ := r["password"].(string)
	role, _ := r["role"].(string)
	return User{Username: username, Password: password, Role: Role(role)}
}

func (u User) Record() Record {
	return Record{
		"username": u.Username,
		"password": u.Password,
		"role":     string(u.Role),
	}
}
