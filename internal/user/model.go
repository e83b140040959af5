package user

import (
	"time"

	"storefront-be/internal/utils"
)

type Role string

const (
	RoleUser  Role = utils.RoleUser
	RoleAdmin Role = utils.RoleAdmin
)

type User struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) IsOperator() bool {
	return u.Role == RoleAdmin
}
