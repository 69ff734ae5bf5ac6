package models

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a user of the store.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username      string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email         string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password      string    `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	FullName      string    `json:"full_name" gorm:"type:varchar(150)" validate:"omitempty,max=150"`
	Phone         string    `json:"phone" gorm:"type:varchar(20)" validate:"omitempty,phone"`
	Role          string    `json:"role" gorm:"type:varchar(20);not null;default:customer"`
	FirstPurchase bool      `json:"first_purchase" gorm:"not null;default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may use the back-office.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
